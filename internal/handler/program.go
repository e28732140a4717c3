// internal/handler/program.go

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vizlog/vizlog/internal/applog"
	"github.com/vizlog/vizlog/internal/config"
	"github.com/vizlog/vizlog/internal/destination"
	"github.com/vizlog/vizlog/internal/enricher"
	"github.com/vizlog/vizlog/internal/eventchan"
	"github.com/vizlog/vizlog/internal/iputil"
	"github.com/vizlog/vizlog/internal/rules"
	"github.com/vizlog/vizlog/internal/security"
	"github.com/vizlog/vizlog/internal/truncate"
	"github.com/vizlog/vizlog/internal/validation"
	"github.com/vizlog/vizlog/pkg/vizlog"
)

// ProgramHandlerDeps holds dependencies for the program event channel handler.
type ProgramHandlerDeps struct {
	Config       *config.Config
	Destinations *destination.Manager
	Rules        *rules.Processor
	AppLog       *applog.Logger
}

// programSession is the per-connection state of one connected program.
type programSession struct {
	id       string
	conn     *websocket.Conn
	request  *http.Request
	clientIP string
	limiter  *rate.Limiter
}

// NewProgramHandler creates the Gin handler that upgrades a program's
// connection and runs its event loop until disconnect.
func NewProgramHandler(deps ProgramHandlerDeps) gin.HandlerFunc {
	if deps.Config == nil {
		panic("ProgramHandler requires a non-nil Config")
	}
	if deps.Destinations == nil {
		panic("ProgramHandler requires a non-nil destination manager")
	}
	if deps.Rules == nil {
		panic("ProgramHandler requires a non-nil rule processor")
	}
	if deps.AppLog == nil {
		panic("ProgramHandler requires a non-nil AppLog")
	}

	ipResolver, err := iputil.NewResolver(deps.Config.Server.TrustedProxies, deps.Config.Server.ClientIPHeader)
	if err != nil {
		// Config validation should have caught this; refuse connections
		// rather than misattribute client IPs.
		deps.AppLog.Error("Failed to parse trusted proxies for program handler: %v", err)
		return func(ctx *gin.Context) {
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "client IP resolver misconfigured"})
		}
	}

	// Per-destination additions, looked up by name at dispatch time.
	destAdds := make(map[string][]config.AddRecordDataSpec, len(deps.Config.LogDestinations))
	for _, dest := range deps.Config.LogDestinations {
		destAdds[dest.Name] = dest.AddRecordData
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Programs are not browsers; origin checks do not apply.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(ctx *gin.Context) {
		clientIP := ipResolver.ClientIP(ctx.Request)

		// Connect authentication happens before the upgrade so rejected
		// programs get a plain HTTP status.
		if secret := deps.Config.Security.Token.Secret; secret != "" {
			token := ctx.Query("token")
			if token == "" {
				deps.AppLog.Warn("Program handler: missing connect token from IP %s", clientIP)
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			valid, err := security.ValidateToken(secret, deps.Config.Server.Namespace, token)
			if err != nil || !valid {
				deps.AppLog.Warn("Program handler: invalid connect token from IP %s: %v", clientIP, err)
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			deps.AppLog.Warn("Program handler: upgrade failed for IP %s: %v", clientIP, err)
			return
		}

		session := &programSession{
			id:       uuid.NewString(),
			conn:     conn,
			request:  ctx.Request,
			clientIP: clientIP,
		}
		if perMinute := deps.Config.Server.RequestLimits.RateLimit; perMinute > 0 {
			session.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		}

		deps.AppLog.Info("Program connected: session=%s ip=%s", session.id, session.clientIP)
		runProgramSession(deps, destAdds, session)
	}
}

// runProgramSession reads envelopes until the program disconnects, either
// through the two-phase handshake or by dropping the connection.
func runProgramSession(deps ProgramHandlerDeps, destAdds map[string][]config.AddRecordDataSpec, session *programSession) {
	defer func() {
		_ = session.conn.Close()
		deps.AppLog.Info("Program disconnected: session=%s", session.id)
	}()

	for {
		_, message, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				deps.AppLog.Warn("Program session %s: read error: %v", session.id, err)
			}
			return
		}

		var envelope eventchan.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			deps.AppLog.Warn("Program session %s: malformed envelope: %v", session.id, err)
			continue
		}

		switch envelope.Event {
		case vizlog.EventRecord:
			handleRecord(deps, destAdds, session, envelope.Payload)

		case vizlog.EventDisconnectRequest:
			// Approve first; the program closes only after seeing the
			// approval, so every record it sent before the request has
			// already been read by this loop.
			approval := eventchan.Envelope{Event: vizlog.EventDisconnectApprove}
			if err := session.conn.WriteJSON(approval); err != nil {
				deps.AppLog.Warn("Program session %s: failed to approve disconnect: %v", session.id, err)
			}
			return

		default:
			deps.AppLog.Warn("Program session %s: unknown event '%s'", session.id, envelope.Event)
		}
	}
}

// handleRecord runs one received record through the ingest pipeline:
// rate limit, decode, validate, sanitize, truncate, route, enrich, store.
func handleRecord(deps ProgramHandlerDeps, destAdds map[string][]config.AddRecordDataSpec, session *programSession, payload json.RawMessage) {
	if session.limiter != nil && !session.limiter.Allow() {
		deps.AppLog.Info("Program session %s: rate limit exceeded, record dropped", session.id)
		return
	}

	var record map[string]interface{}
	if err := json.Unmarshal(payload, &record); err != nil {
		deps.AppLog.Warn("Program session %s: malformed record payload: %v", session.id, err)
		return
	}

	if err := validation.ValidateRecord(record); err != nil {
		deps.AppLog.Warn("Program session %s: invalid record: %v", session.id, err)
		return
	}

	record, err := validation.SanitizeMapRecursively(
		record,
		validation.DefaultMaxDepth,
		0,
		validation.DefaultMaxKeyLength,
		validation.DefaultMaxStringLength,
	)
	if err != nil {
		deps.AppLog.Warn("Program session %s: record sanitization failed: %v", session.id, err)
		return
	}

	if maxSize := deps.Config.Server.RequestLimits.MaxRecordSize; maxSize > 0 {
		if truncated, err := truncate.RecordIfNeeded(&record, int64(maxSize)); err != nil {
			deps.AppLog.Warn("Program session %s: truncation failed: %v", session.id, err)
			return
		} else if truncated {
			deps.AppLog.Debug("Program session %s: oversized record truncated", session.id)
		}
	}

	loggerName, _ := record["loggerName"].(string)
	level, _ := record["level"].(string)
	tags := tagStrings(record["tags"])

	ruleResult := deps.Rules.Process(loggerName, level, tags)
	if !ruleResult.ShouldStore {
		return
	}

	targets := ruleResult.TargetDestinations
	if targets == nil {
		targets = deps.Destinations.EnabledNames()
	}

	meta := enricher.Metadata{ClientIP: session.clientIP, SessionID: session.id}
	for _, name := range targets {
		dest := deps.Destinations.Get(name)
		if dest == nil {
			deps.AppLog.Warn("Program session %s: destination '%s' not available", session.id, name)
			continue
		}

		enriched, err := enricher.EnrichAndMerge(record, ruleResult.AccumulatedAddData, destAdds[name], session.request, meta)
		if err != nil {
			deps.AppLog.Error("Program session %s: enrichment failed for destination '%s': %v", session.id, name, err)
			continue
		}
		if err := dest.Write(enriched); err != nil {
			deps.AppLog.Error("Program session %s: write to destination '%s' failed: %v", session.id, name, err)
		}
	}
}

// tagStrings converts the decoded JSON tags value into a string slice,
// preserving order and duplicates.
func tagStrings(value interface{}) []string {
	list, ok := value.([]interface{})
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

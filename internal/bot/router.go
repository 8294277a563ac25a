package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pagewatch/internal/auth"
	"pagewatch/internal/notify"
	"pagewatch/internal/storage"
	"pagewatch/internal/track"
)

const (
	usageTrack   = "Usage: /track <url> <interval> [night]"
	usageUntrack = "Usage: /untrack <url>"
	usageFiles   = "Usage: /files <url>"
	usageAddSudo = "Usage: /addsudo <user_id>"
	usageRmSudo  = "Usage: /rmsudo <user_id>"

	replyUnauthorized = "❌ You are not authorized to use this bot."
	replyOwnerOnly    = "❌ Owner only."
	replyTrackFailed  = "❌ Failed to start tracking"
	replyUnknown      = "Unknown command. Try /start."
)

// Router maps one command message to its reply text. It carries no
// transport state, so it is exercised directly in tests.
type Router struct {
	auth    *auth.Service
	tracker *track.Service
	log     *zap.Logger
}

func NewRouter(authSvc *auth.Service, tracker *track.Service, log *zap.Logger) *Router {
	return &Router{
		auth:    authSvc,
		tracker: tracker,
		log:     log,
	}
}

// HandleCommand runs one command and returns the reply. userID is zero for
// channel posts; tracking entries are then owned by the chat itself.
func (r *Router) HandleCommand(ctx context.Context, chatID, userID int64, command, args string) string {
	if !r.auth.IsAuthorized(userID) && !r.auth.IsAuthorized(chatID) {
		r.log.Warn("unauthorized command",
			zap.Int64("chat", chatID),
			zap.Int64("user", userID),
			zap.String("command", command))
		return replyUnauthorized
	}

	owner := effectiveOwner(chatID, userID)

	switch command {
	case "start", "help":
		return r.helpText(userID)
	case "track":
		return r.handleTrack(ctx, owner, args)
	case "untrack":
		return r.handleUntrack(owner, args)
	case "list":
		return r.handleList(owner)
	case "files":
		return r.handleFiles(owner, args)
	case "addsudo":
		return r.handleAddSudo(userID, args)
	case "rmsudo":
		return r.handleRemoveSudo(userID, args)
	case "authorize":
		return r.handleAuthorize(userID, chatID)
	case "revoke":
		return r.handleRevoke(userID, chatID)
	default:
		return replyUnknown
	}
}

// effectiveOwner keys tracking entries: the sending user when there is one,
// otherwise the chat (channel posts carry no sender).
func effectiveOwner(chatID, userID int64) int64 {
	if userID != 0 {
		return userID
	}
	return chatID
}

func (r *Router) helpText(userID int64) string {
	var b strings.Builder
	b.WriteString("👋 I watch web pages and deliver new files.\n\n")
	b.WriteString("/track <url> <minutes> [night] - start tracking a page\n")
	b.WriteString("/untrack <url> - stop tracking\n")
	b.WriteString("/list - your tracked pages\n")
	b.WriteString("/files <url> - files recorded for a page")
	if r.auth.IsOwner(userID) {
		b.WriteString("\n\nAdmin:\n")
		b.WriteString("/addsudo <user_id> - grant access\n")
		b.WriteString("/rmsudo <user_id> - revoke access\n")
		b.WriteString("/authorize - allow this chat\n")
		b.WriteString("/revoke - disallow this chat")
	}
	return b.String()
}

func (r *Router) handleTrack(ctx context.Context, owner int64, args string) string {
	parsed, err := parseTrackArgs(args)
	if err != nil {
		return usageTrack
	}

	tracked, err := r.tracker.Track(ctx, owner, parsed.url, parsed.interval, parsed.night)
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return fmt.Sprintf("❌ Already tracking %s", parsed.url)
	case err != nil:
		r.log.Error("track failed", zap.Int64("owner", owner), zap.String("url", parsed.url), zap.Error(err))
		return replyTrackFailed
	}

	return notify.TrackStarted(tracked)
}

func (r *Router) handleUntrack(owner int64, args string) string {
	url, err := parseURLArg(args)
	if err != nil {
		return usageUntrack
	}

	switch err := r.tracker.Untrack(owner, url); {
	case errors.Is(err, track.ErrNotTracked):
		return fmt.Sprintf("❌ Not tracking %s", url)
	case err != nil:
		r.log.Error("untrack failed", zap.Int64("owner", owner), zap.String("url", url), zap.Error(err))
		return "❌ Failed to stop tracking"
	}

	return notify.TrackStopped(url)
}

func (r *Router) handleList(owner int64) string {
	list, err := r.tracker.List(owner)
	if err != nil {
		r.log.Error("list failed", zap.Int64("owner", owner), zap.Error(err))
		return "❌ Failed to list tracked URLs"
	}
	return notify.TrackedList(list)
}

func (r *Router) handleFiles(owner int64, args string) string {
	url, err := parseURLArg(args)
	if err != nil {
		return usageFiles
	}

	tracked, err := r.tracker.Files(owner, url)
	switch {
	case errors.Is(err, track.ErrNotTracked):
		return fmt.Sprintf("❌ Not tracking %s", url)
	case err != nil:
		r.log.Error("files failed", zap.Int64("owner", owner), zap.String("url", url), zap.Error(err))
		return "❌ Failed to read recorded files"
	}

	return notify.FileList(tracked.URL, tracked.Files)
}

func (r *Router) handleAddSudo(userID int64, args string) string {
	id, err := parseIDArg(args)
	if err != nil {
		return usageAddSudo
	}

	switch err := r.auth.AddSudo(userID, id); {
	case errors.Is(err, auth.ErrUnauthorized):
		return replyOwnerOnly
	case err != nil:
		r.log.Error("addsudo failed", zap.Int64("id", id), zap.Error(err))
		return "❌ Failed to grant sudo access"
	}

	return fmt.Sprintf("✅ Sudo access granted to %d", id)
}

func (r *Router) handleRemoveSudo(userID int64, args string) string {
	id, err := parseIDArg(args)
	if err != nil {
		return usageRmSudo
	}

	switch err := r.auth.RemoveSudo(userID, id); {
	case errors.Is(err, auth.ErrUnauthorized):
		return replyOwnerOnly
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("❌ %d is not a sudo user", id)
	case err != nil:
		r.log.Error("rmsudo failed", zap.Int64("id", id), zap.Error(err))
		return "❌ Failed to revoke sudo access"
	}

	return fmt.Sprintf("✅ Sudo access revoked for %d", id)
}

func (r *Router) handleAuthorize(userID, chatID int64) string {
	switch err := r.auth.AuthorizeChannel(userID, chatID); {
	case errors.Is(err, auth.ErrUnauthorized):
		return replyOwnerOnly
	case err != nil:
		r.log.Error("authorize failed", zap.Int64("chat", chatID), zap.Error(err))
		return "❌ Failed to authorize this chat"
	}

	return "✅ This chat is now authorized"
}

func (r *Router) handleRevoke(userID, chatID int64) string {
	switch err := r.auth.RevokeChannel(userID, chatID); {
	case errors.Is(err, auth.ErrUnauthorized):
		return replyOwnerOnly
	case errors.Is(err, storage.ErrNotFound):
		return "❌ This chat was not authorized"
	case err != nil:
		r.log.Error("revoke failed", zap.Int64("chat", chatID), zap.Error(err))
		return "❌ Failed to revoke this chat"
	}

	return "✅ This chat's authorization was revoked"
}

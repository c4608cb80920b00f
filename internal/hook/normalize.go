package hook

import (
	"encoding/json"
	"time"

	"castfeed/internal/identity"
)

// Recognized provider event types.
const (
	TypeFollowCreated = "follow.created"
	TypeFollowDeleted = "follow.deleted"
	TypeUserUpdated   = "user.updated"
	TypeCastCreated   = "cast.created"
	TypeTradeCreated  = "trade.created"
)

// Fallback chains, one per logical field. Order is load-bearing: provider
// schema generations populate different subsets and the first hit wins.
var (
	actorIDPaths  = fieldPaths{"actor_fid", "user.fid", "user_fid", "follower_fid", "from_fid"}
	targetIDPaths = fieldPaths{"target_fid", "target_user.fid", "followed_fid", "to_fid"}

	actorNamePaths  = fieldPaths{"user.username", "actor_username", "user_name"}
	targetNamePaths = fieldPaths{"target_user.username", "target_username"}

	profileFIDPaths   = fieldPaths{"fid", "user.fid", "actor_fid", "user_fid"}
	profileNamePaths  = fieldPaths{"user.username", "username"}
	beforePaths       = fieldPaths{"before", "old", "previous"}
	afterPaths        = fieldPaths{"after", "new", "current"}
	updatedFieldPaths = fieldPaths{"updated_fields", "changed_fields", "changes"}

	authorIDPaths   = fieldPaths{"author.fid", "fid", "user.fid"}
	authorNamePaths = fieldPaths{"author.username", "username", "user.username"}
	castTextPaths   = fieldPaths{"text", "cast.text", "body"}
	castHashPaths   = fieldPaths{"hash", "cast.hash", "merkle_root"}

	// parentCastPaths decide root status: a cast is a root iff none of these
	// fields is present.
	parentCastPaths = fieldPaths{
		"parent_hash", "parentHash", "parent.hash",
		"parent_merkle_root", "replyParentMerkleRoot", "rootParentHash",
	}
	// Channel references are informational only. One provider generation
	// treats them as disqualifying root status and another carves them out;
	// the carve-out is the deliberate choice here, so these paths are never
	// consulted for root detection.
	channelRefPaths = fieldPaths{"parent_url", "parentUri", "channel.url"}

	traderIDPaths   = fieldPaths{"trader.fid", "trader.user.fid"}
	traderNamePaths = fieldPaths{"trader.username", "trader.user.username"}
	tokenInPaths    = fieldPaths{"net_transfer.received_token.symbol", "net_transfers.receive.token.symbol", "token_in.symbol"}
	tokenOutPaths   = fieldPaths{"net_transfer.sent_token.symbol", "net_transfers.send.token.symbol", "token_out.symbol"}
	usdPaths        = fieldPaths{"net_transfer.usd_value", "usd_value", "amount_usd"}
	txPaths         = fieldPaths{"tx_hash", "transaction.hash", "txn_hash"}
	chainPaths      = fieldPaths{"chain", "network"}
)

// Envelope-level chains (the header fields move around too).
var (
	envIDPaths      = fieldPaths{"id", "event_id"}
	envTypePaths    = fieldPaths{"type", "event_type"}
	envCreatedPaths = fieldPaths{"created_at", "createdAt", "timestamp"}
)

// ParseEnvelope decodes a raw webhook body. The body is used exactly as
// delivered and never mutated.
func ParseEnvelope(body []byte) (Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, err
	}

	env := Envelope{}
	env.ID, _ = envIDPaths.str(raw)
	env.Type, _ = envTypePaths.str(raw)
	if sec, ok := envCreatedPaths.num(raw); ok && sec > 0 {
		env.CreatedAt = int64(sec)
	}
	if d, ok := lookup(raw, "data"); ok {
		if m, ok := d.(map[string]any); ok {
			env.Data = m
		}
	}
	return env, nil
}

// Normalize converts an envelope into exactly one typed event variant.
// Unrecognized types produce no variant and no error; they are dropped
// silently upstream.
func Normalize(env Envelope, now time.Time) (Event, bool) {
	ts := now.UnixMilli()
	if env.CreatedAt > 0 {
		// Provider timestamps are unix seconds.
		ts = env.CreatedAt * 1000
	}

	switch env.Type {
	case TypeFollowCreated, TypeFollowDeleted:
		return normalizeFollow(env.Data, env.Type == TypeFollowDeleted, ts), true
	case TypeUserUpdated:
		return normalizeProfileUpdate(env.Data, ts), true
	case TypeCastCreated:
		return normalizeCast(env.Data, ts), true
	case TypeTradeCreated:
		return normalizeTrade(env.Data, ts), true
	default:
		return Event{}, false
	}
}

func normalizeFollow(data map[string]any, unfollow bool, ts int64) Event {
	ev := &FollowEvent{Unfollow: unfollow, Timestamp: ts}
	ev.ActorFID, _ = actorIDPaths.id(data)
	ev.TargetFID, _ = targetIDPaths.id(data)
	ev.ActorName, _ = actorNamePaths.str(data)
	ev.TargetName, _ = targetNamePaths.str(data)
	return Event{Kind: KindFollow, Follow: ev}
}

func normalizeProfileUpdate(data map[string]any, ts int64) Event {
	ev := &ProfileUpdateEvent{Timestamp: ts}
	ev.FID, _ = profileFIDPaths.id(data)
	ev.Username, _ = profileNamePaths.str(data)
	if m, ok := beforePaths.obj(data); ok {
		ev.Before = snapshotFromPayload(m)
	}
	if m, ok := afterPaths.obj(data); ok {
		ev.After = snapshotFromPayload(m)
	}
	ev.UpdatedFields, _ = updatedFieldPaths.strList(data)
	return Event{Kind: KindProfileUpdate, Profile: ev}
}

func normalizeCast(data map[string]any, ts int64) Event {
	ev := &CastEvent{Timestamp: ts}
	ev.AuthorFID, _ = authorIDPaths.id(data)
	ev.AuthorName, _ = authorNamePaths.str(data)
	ev.Text, _ = castTextPaths.str(data)
	ev.Hash, _ = castHashPaths.str(data)
	ev.ParentHash, _ = parentCastPaths.str(data)
	ev.Root = !parentCastPaths.present(data)
	ev.ChannelURL, _ = channelRefPaths.str(data)
	return Event{Kind: KindCast, Cast: ev}
}

func normalizeTrade(data map[string]any, ts int64) Event {
	ev := &TradeEvent{Timestamp: ts}
	ev.TraderFID, _ = traderIDPaths.id(data)
	ev.TraderName, _ = traderNamePaths.str(data)
	ev.TokenIn, _ = tokenInPaths.str(data)
	ev.TokenOut, _ = tokenOutPaths.str(data)
	ev.AmountUSD, _ = usdPaths.num(data)
	ev.TxHash, _ = txPaths.str(data)
	ev.Chain, _ = chainPaths.str(data)
	return Event{Kind: KindTrade, Trade: ev}
}

// Snapshot field chains inside a payload-embedded before/after object.
var (
	snapNamePaths     = fieldPaths{"username", "name"}
	snapDisplayPaths  = fieldPaths{"display_name", "displayName"}
	snapBioPaths      = fieldPaths{"bio.text", "bio"}
	snapAvatarPaths   = fieldPaths{"pfp_url", "pfp.url", "avatar_url"}
	snapLocationPaths = fieldPaths{"location", "profile.location"}
	snapWebsitePaths  = fieldPaths{"website", "url"}
)

// snapshotFromPayload converts a before/after object into a profile
// snapshot. Returns nil when the object carries no recognizable field, so
// empty objects never shadow the fallback tiers downstream.
func snapshotFromPayload(m map[string]any) *identity.Profile {
	p := identity.Profile{}
	p.Username, _ = snapNamePaths.str(m)
	p.DisplayName, _ = snapDisplayPaths.str(m)
	p.Bio, _ = snapBioPaths.str(m)
	p.AvatarURL, _ = snapAvatarPaths.str(m)
	p.Location, _ = snapLocationPaths.str(m)
	p.Website, _ = snapWebsitePaths.str(m)
	if p.IsZero() {
		return nil
	}
	return &p
}

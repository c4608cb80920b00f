package hook

import "castfeed/internal/identity"

// Envelope is a raw webhook delivery, exactly as the provider sent it.
// Data stays opaque until a normalizer extracts typed fields from it.
type Envelope struct {
	ID        string
	Type      string
	CreatedAt int64 // unix seconds; 0 when absent
	Data      map[string]any
}

type Kind string

const (
	KindFollow        Kind = "follow"
	KindProfileUpdate Kind = "profile_update"
	KindCast          Kind = "cast"
	KindTrade         Kind = "trade"
)

// Event is a tagged union: exactly one variant pointer is non-nil,
// selected by Kind.
type Event struct {
	Kind    Kind
	Follow  *FollowEvent
	Profile *ProfileUpdateEvent
	Cast    *CastEvent
	Trade   *TradeEvent
}

// FIDs are strictly positive in the social graph; a 0 value marks an
// identifier the payload did not carry (or carried in a non-numeric form).

type FollowEvent struct {
	ActorFID   int64
	TargetFID  int64
	ActorName  string
	TargetName string
	Unfollow   bool
	Timestamp  int64 // unix millis
}

type ProfileUpdateEvent struct {
	FID      int64
	Username string
	// Before/After carry explicit payload-embedded snapshots when the
	// provider sends them; nil otherwise.
	Before *identity.Profile
	After  *identity.Profile
	// UpdatedFields lists changed canonical field names when the payload
	// reports names only, with no before/after structure.
	UpdatedFields []string
	Timestamp     int64
}

type CastEvent struct {
	AuthorFID  int64
	AuthorName string
	Text       string
	Hash       string
	ParentHash string
	// Root is true iff no parent-cast reference was present. A channel
	// reference alone never clears it.
	Root bool
	// ChannelURL is the informational channel reference, when present.
	ChannelURL string
	Timestamp  int64
}

type TradeEvent struct {
	TraderFID  int64
	TraderName string
	// AmountUSD is the provider's pre-computed USD value; 0 means unknown.
	AmountUSD float64
	TokenIn   string
	TokenOut  string
	TxHash    string
	Chain     string
	Timestamp int64
}

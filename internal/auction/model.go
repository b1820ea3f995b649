package auction

import (
	"errors"
	"time"
)

const (
	// MinOriginatingBid is the smallest allowed originating bid, and
	// also the flat price an uncontested originating bid clears at.
	MinOriginatingBid = 10

	// MinRaise is how far a challenge bid must exceed the current high.
	MinRaise = 5

	// DefaultContractTag is stamped on a won prospect that has no
	// contract type yet.
	DefaultContractTag = "PC"
)

// BidKind distinguishes the week-opening originating bid from the
// challenge bids placed against it.
type BidKind string

const (
	BidOriginating BidKind = "OB"
	BidChallenge   BidKind = "CB"
)

// Decision is the originating manager's Saturday choice.
type Decision string

const (
	DecisionMatch   Decision = "match"
	DecisionForfeit Decision = "forfeit"
)

// Bid is immutable once appended to a week record; it is never edited
// or deleted, including after resolution.
type Bid struct {
	ID          string    `json:"id"`
	Team        string    `json:"team"`
	ProspectID  string    `json:"prospect_id"`
	Amount      int       `json:"amount"`
	Kind        BidKind   `json:"kind"`
	SubmittedAt time.Time `json:"submitted_at"`
	LocalDate   string    `json:"local_date"`
}

// MatchDecision records a Match or Forfeit from the originating
// manager. At most one exists per (team, prospect) and it is final.
type MatchDecision struct {
	Team       string    `json:"team"`
	ProspectID string    `json:"prospect_id"`
	Decision   Decision  `json:"decision"`
	DecidedAt  time.Time `json:"decided_at"`
	Source     string    `json:"source"`
}

// Week is the persisted per-week auction record, keyed by the
// league-local Monday date. It is created lazily the first time any
// operation touches a week, and never deleted.
type Week struct {
	WeekStart     string          `json:"week_start"`
	Phase         Phase           `json:"phase"`
	PriorityOrder []string        `json:"priority_order"`
	Bids          []Bid           `json:"bids"`
	Decisions     []MatchDecision `json:"decisions"`
	Schedule      Schedule        `json:"schedule"`
	AppliedTeams  []string        `json:"applied_teams,omitempty"`
	Resolution    *Summary        `json:"resolution,omitempty"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Status classifies a resolution outcome. Inactive and NoBids are
// normal non-error results.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusInactive Status = "inactive"
	StatusNoBids   Status = "no_bids"
)

// Win sources, kept on the summary so callers can explain results.
const (
	WinUncontested = "OB_ONLY"
	WinMatched     = "OB_MATCH"
	WinChallenge   = "CB_WIN"
)

// WinningBid is the final outcome for one prospect.
type WinningBid struct {
	Team   string `json:"team"`
	Amount int    `json:"amount"`
	Source string `json:"source"`
}

// Summary maps each sold prospect to its winner and clearing price.
type Summary struct {
	Status  Status                `json:"status"`
	Winners map[string]WinningBid `json:"winners"`
}

// Rejection sentinels for the bid and decision write paths. Messages
// are user-facing; callers display them verbatim.
var (
	ErrWeekInactive           = errors.New("no auction this week")
	ErrBidsClosed             = errors.New("auctions are not active right now")
	ErrProcessingClosed       = errors.New("auction is in processing; bids are closed")
	ErrInvalidBidKind         = errors.New("invalid bid type, use OB or CB")
	ErrOriginatingClosed      = errors.New("originating bids are only allowed Mon 3pm through Tue night (league time)")
	ErrChallengeClosed        = errors.New("challenge bids are only allowed Wed through Fri 9pm (league time)")
	ErrUnknownTeam            = errors.New("unknown team")
	ErrNonPositiveAmount      = errors.New("bid amount must be positive")
	ErrProspectNotFound       = errors.New("prospect not found or not eligible")
	ErrProspectOwned          = errors.New("prospect already owned and not eligible for auction")
	ErrBelowMinimumBid        = errors.New("originating bids must be at least $10 WB")
	ErrTeamHasOriginating     = errors.New("you have already placed an originating bid this week")
	ErrProspectHasOriginating = errors.New("this prospect already has an originating bid")
	ErrNoOriginatingBid       = errors.New("challenge bids require an existing originating bid")
	ErrOwnOriginatingBid      = errors.New("originating manager cannot challenge their own bid")
	ErrInsufficientRaise      = errors.New("challenge bid below minimum raise")
	ErrDailyChallengeUsed     = errors.New("you already have a challenge bid on this prospect today")
	ErrInsufficientFunds      = errors.New("insufficient WizBucks")
	ErrDecisionClosed         = errors.New("match or forfeit is only allowed on Saturday")
	ErrInvalidDecision        = errors.New("decision must be match or forfeit")
	ErrNotOriginatingTeam     = errors.New("only the originating manager may record a decision")
	ErrAlreadyDecided         = errors.New("you have already recorded a decision for this prospect")
)

// ErrWeekBusy means the per-week lock could not be acquired in time.
// It is a fault, not a rejection; callers must surface it loudly
// instead of retrying silently.
var ErrWeekBusy = errors.New("auction week is locked by another operation")

var rejections = []error{
	ErrWeekInactive,
	ErrBidsClosed,
	ErrProcessingClosed,
	ErrInvalidBidKind,
	ErrOriginatingClosed,
	ErrChallengeClosed,
	ErrUnknownTeam,
	ErrNonPositiveAmount,
	ErrProspectNotFound,
	ErrProspectOwned,
	ErrBelowMinimumBid,
	ErrTeamHasOriginating,
	ErrProspectHasOriginating,
	ErrNoOriginatingBid,
	ErrOwnOriginatingBid,
	ErrInsufficientRaise,
	ErrDailyChallengeUsed,
	ErrInsufficientFunds,
	ErrDecisionClosed,
	ErrInvalidDecision,
	ErrNotOriginatingTeam,
	ErrAlreadyDecided,
}

// IsRejection reports whether err is an expected validation rejection
// rather than a fault.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

package record

// Reason explains why a record is excluded from ingestion.
type Reason string

// Ignore reasons, checked in this order.
const (
	ReasonNone      Reason = ""
	ReasonRetweet   Reason = "retweet"
	ReasonQuoted    Reason = "quoted"
	ReasonReply     Reason = "reply"
	ReasonSensitive Reason = "sensitive"
)

// IgnoreReason reports the first flag that makes r ineligible.
func IgnoreReason(r *Record) Reason {
	switch {
	case r.IsRetweet:
		return ReasonRetweet
	case r.IsQuoted:
		return ReasonQuoted
	case r.IsReply:
		return ReasonReply
	case r.IsPossiblySensitive:
		return ReasonSensitive
	default:
		return ReasonNone
	}
}

// IsEligible reports whether r should be transformed and written.
func IsEligible(r *Record) bool {
	return IgnoreReason(r) == ReasonNone
}

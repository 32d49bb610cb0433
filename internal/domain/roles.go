package domain

type Role string

const (
	RoleAdmin     Role = "tv-admin"
	RoleBidder    Role = "tv-bidder"
	RoleEvaluator Role = "tv-evaluator"

	// RoleNone is recorded in audit events for actors with no recognized group.
	RoleNone Role = "NONE"
)

type Operation string

const (
	OpCreateTender   Operation = "tender.create"
	OpUpdateTender   Operation = "tender.update"
	OpDeleteTender   Operation = "tender.delete"
	OpListTenders    Operation = "tender.list"
	OpGetTender      Operation = "tender.get"
	OpRequestUpload  Operation = "bid.upload_url"
	OpListBids       Operation = "bid.list"
	OpDownloadBid    Operation = "bid.download_url"
	OpListVersions   Operation = "bid.versions"
	OpRestoreVersion Operation = "bid.restore"
	OpSetBidStatus   Operation = "bid.set_status"
	OpScoreBid       Operation = "bid.score"
	OpListAuditLog   Operation = "audit.list"
)

// allowedRoles is the static authorization matrix. List visibility for
// tenders is further narrowed per role by the handler (bidders see only
// OPEN, evaluators OPEN and CLOSED).
var allowedRoles = map[Operation][]Role{
	OpCreateTender:   {RoleAdmin},
	OpUpdateTender:   {RoleAdmin},
	OpDeleteTender:   {RoleAdmin},
	OpListTenders:    {RoleAdmin, RoleBidder, RoleEvaluator},
	OpGetTender:      {RoleAdmin, RoleBidder, RoleEvaluator},
	OpRequestUpload:  {RoleBidder},
	OpListBids:       {RoleAdmin, RoleEvaluator},
	OpDownloadBid:    {RoleAdmin, RoleEvaluator},
	OpListVersions:   {RoleAdmin},
	OpRestoreVersion: {RoleAdmin},
	OpSetBidStatus:   {RoleAdmin},
	OpScoreBid:       {RoleAdmin, RoleEvaluator},
	OpListAuditLog:   {RoleAdmin},
}

// Allowed reports whether any of the actor's roles may perform op.
func Allowed(op Operation, roles []Role) bool {
	for _, allowed := range allowedRoles[op] {
		for _, r := range roles {
			if r == allowed {
				return true
			}
		}
	}
	return false
}

// rolePrecedence decides which role is recorded as an actor's primary role
// when they hold several. The upstream identity provider emits groups in an
// unspecified order, so precedence is fixed here instead of taking the first
// listed group.
var rolePrecedence = []Role{RoleAdmin, RoleEvaluator, RoleBidder}

func PrimaryRole(roles []Role) Role {
	for _, p := range rolePrecedence {
		for _, r := range roles {
			if r == p {
				return p
			}
		}
	}
	return RoleNone
}

func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

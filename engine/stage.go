package engine

import (
	"errors"
	"sort"
	"strings"

	"github.com/AnaEHC/semaforo-app/models"
)

var (
	ErrUnknownStage    = errors.New("unknown stage")
	ErrStageNotAllowed = errors.New("stage not allowed for role")
)

// Role is a user's capability set over workflow stages.
type Role string

const (
	RoleDirection   Role = "DIRECCION"
	RoleCoordinator Role = "COORDINADOR"
	RoleCloser      Role = "CLOSER"
	RoleSuper       Role = "SUPER"
)

// Stage is one view of the shared client set.
type Stage string

const (
	StageOverview              Stage = "overview"
	StageCoordination          Stage = "coordination"
	StageCloserAssignment      Stage = "closer-assignment"
	StageSupercloserAssignment Stage = "supercloser-assignment"
	StageOutOfFlow             Stage = "out-of-flow"
	StageCloserFollowUp        Stage = "closer-follow-up"
	StageSupercloserFollowUp   Stage = "supercloser-follow-up"
)

var roleStages = map[Role][]Stage{
	RoleDirection: {
		StageOverview,
		StageCoordination,
		StageCloserAssignment,
		StageSupercloserAssignment,
		StageOutOfFlow,
	},
	RoleCoordinator: {StageCoordination},
	RoleCloser:      {StageCloserFollowUp},
	RoleSuper:       {StageSupercloserFollowUp},
}

// ParseRole upper-cases and validates a role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleStages[r]
	return r, ok
}

// Stages lists the stages a role may open.
func (r Role) Stages() []Stage {
	return append([]Stage(nil), roleStages[r]...)
}

// Can reports whether the role may open stage s.
func (r Role) Can(s Stage) bool {
	for _, allowed := range roleStages[r] {
		if allowed == s {
			return true
		}
	}
	return false
}

// Viewer is the user looking at a stage.
type Viewer struct {
	User string
	Role Role
}

// Includes reports whether summary s belongs to the stage for viewer v.
func (st Stage) Includes(s models.ClientSummary, v Viewer, th Thresholds, today models.Date) bool {
	user := models.NormalizeName(v.User)
	switch st {
	case StageOverview:
		return true
	case StageCoordination:
		if s.Expired || s.BusinessDays >= th.Closer {
			return false
		}
		if s.AssignedCloser != "" || s.AssignedSupercloser != "" {
			return false
		}
		return v.Role != RoleCoordinator || s.Cal == user
	case StageCloserAssignment:
		return th.EligibleForCloser(s)
	case StageSupercloserAssignment:
		return th.EligibleForSupercloser(s)
	case StageOutOfFlow:
		return th.IsOutOfFlow(s, today)
	case StageCloserFollowUp:
		return models.NormalizeName(s.AssignedCloser) == user && !s.CloserHandled
	case StageSupercloserFollowUp:
		return models.NormalizeName(s.AssignedSupercloser) == user &&
			s.BusinessDays >= th.Supercloser &&
			!s.SupercloserHandled
	}
	return false
}

func (st Stage) known() bool {
	switch st {
	case StageOverview, StageCoordination, StageCloserAssignment, StageSupercloserAssignment,
		StageOutOfFlow, StageCloserFollowUp, StageSupercloserFollowUp:
		return true
	}
	return false
}

// Select filters summaries down to the stage as seen by v. Work queues are
// ordered oldest entry first; the overview and coordination views newest day first.
func Select(st Stage, v Viewer, summaries []models.ClientSummary, th Thresholds, today models.Date) ([]models.ClientSummary, error) {
	if !st.known() {
		return nil, ErrUnknownStage
	}
	if !v.Role.Can(st) {
		return nil, ErrStageNotAllowed
	}

	out := make([]models.ClientSummary, 0)
	for _, s := range summaries {
		if st.Includes(s, v, th, today) {
			out = append(out, s)
		}
	}

	switch st {
	case StageOverview, StageCoordination:
		sort.SliceStable(out, func(i, j int) bool { return out[i].LatestDay.After(out[j].LatestDay) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	}
	return out, nil
}

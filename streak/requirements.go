package streak

import "github.com/sukull/istikrar/models"

// Requirement names a feature gated behind a minimum istikrar.
type Requirement string

const (
	UsernameChange  Requirement = "USERNAME_CHANGE"
	StudyBuddy      Requirement = "STUDY_BUDDY"
	DailyGoalChange Requirement = "DAILY_GOAL_CHANGE"
	AvatarChange    Requirement = "AVATAR_CHANGE"
	ProfileEditing  Requirement = "PROFILE_EDITING"
	SchoolSelection Requirement = "SCHOOL_SELECTION"
)

var requiredDays = map[Requirement]int{
	UsernameChange:  10,
	StudyBuddy:      15,
	DailyGoalChange: 20,
	AvatarChange:    30,
	ProfileEditing:  30,
	SchoolSelection: 50,
}

// Requirements lists every gated feature in ascending order of days.
func Requirements() []Requirement {
	return []Requirement{UsernameChange, StudyBuddy, DailyGoalChange, AvatarChange, ProfileEditing, SchoolSelection}
}

// Days returns the istikrar needed to unlock r, or 0 for an unknown requirement.
func (r Requirement) Days() int {
	return requiredDays[r]
}

// Met reports whether p may use r. A permanently unlocked feature stays available
// after the streak breaks.
func (r Requirement) Met(p *models.UserProgress) bool {
	switch r {
	case ProfileEditing, UsernameChange, AvatarChange, SchoolSelection:
		if p.ProfileEditingUnlocked {
			return true
		}
	case StudyBuddy:
		if p.StudyBuddyUnlocked {
			return true
		}
	}
	days, ok := requiredDays[r]
	return ok && p.Istikrar >= days
}

// RemainingDays is how many more consecutive days p needs for r.
func (r Requirement) RemainingDays(p *models.UserProgress) int {
	if r.Met(p) {
		return 0
	}
	return r.Days() - p.Istikrar
}

// applyUnlocks sets the permanent unlock flags reached by p's current istikrar and
// returns the ones newly set.
func applyUnlocks(p *models.UserProgress) []Requirement {
	var unlocked []Requirement
	if !p.StudyBuddyUnlocked && p.Istikrar >= StudyBuddy.Days() {
		p.StudyBuddyUnlocked = true
		unlocked = append(unlocked, StudyBuddy)
	}
	if !p.ProfileEditingUnlocked && p.Istikrar >= ProfileEditing.Days() {
		p.ProfileEditingUnlocked = true
		unlocked = append(unlocked, ProfileEditing)
	}
	return unlocked
}

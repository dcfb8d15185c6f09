package domain

// CheckEligibility decides whether an attendee may book a session. It
// returns nil to allow, or an *EligibilityError. Suspension is checked
// before the age band.
func CheckEligibility(age int, session SessionType, suspended bool, strikes StrikeState) error {
	if suspended || strikes.Count >= SuspensionThreshold {
		return &EligibilityError{Reason: ErrUserSuspended, SuspendedUntil: strikes.SuspendedUntil()}
	}

	band, ok := session.AgeBand()
	if !ok {
		return &EligibilityError{Reason: ErrUnknownSession}
	}
	if !band.Contains(age) {
		return &EligibilityError{Reason: ErrAgeOutOfRange}
	}
	return nil
}

package iotago

// UnlockableNow implements the claim eligibility predicate of spec.md §4.4,
// shared by input selection, the claim/consolidate scans, and balance
// computation: true when every non-address unlock condition currently
// permits spending and one of ownerAddresses matches whichever address is
// the currently effective unlock address.
func UnlockableNow(out Output, ownerAddresses map[Address]bool, currentTimeUnix uint32, currentMilestone uint32) bool {
	var addressCondition, effectiveUnlockAddress Address
	haveAddressCondition := false

	for _, c := range out.UnlockConditions() {
		switch cond := c.(type) {
		case AddressUnlockCondition:
			addressCondition = cond.Address
			effectiveUnlockAddress = cond.Address
			haveAddressCondition = true
		case TimelockUnlockCondition:
			if !TimeReleased(cond.UnixTime, cond.MilestoneIndex, currentTimeUnix, currentMilestone) {
				return false
			}
		case ExpirationUnlockCondition:
			if TimeReleased(cond.UnixTime, cond.MilestoneIndex, currentTimeUnix, currentMilestone) {
				effectiveUnlockAddress = cond.ReturnAddress
			} else {
				effectiveUnlockAddress = addressCondition
			}
		}
	}
	if !haveAddressCondition {
		return false
	}
	return ownerAddresses[effectiveUnlockAddress]
}

// UnlockableForever reports whether out, once any address condition
// resolves, will remain unlockable by one of ownerAddresses indefinitely:
// every expiration has already released toward an account address and
// every timelock has already released (spec.md §4.4 "unlockable forever").
func UnlockableForever(out Output, ownerAddresses map[Address]bool, currentTimeUnix uint32, currentMilestone uint32) bool {
	for _, c := range out.UnlockConditions() {
		switch cond := c.(type) {
		case TimelockUnlockCondition:
			if !TimeReleased(cond.UnixTime, cond.MilestoneIndex, currentTimeUnix, currentMilestone) {
				return false
			}
		case ExpirationUnlockCondition:
			if !TimeReleased(cond.UnixTime, cond.MilestoneIndex, currentTimeUnix, currentMilestone) {
				return false
			}
			if !ownerAddresses[cond.ReturnAddress] {
				return false
			}
		}
	}
	return UnlockableNow(out, ownerAddresses, currentTimeUnix, currentMilestone)
}

// TimeReleased reports whether a zero-or-passed (unixTime, milestone) pair
// has released, per spec.md §4.4: "a milestone/timestamp value of 0 is
// ignored".
func TimeReleased(unixTime, milestone, currentTimeUnix, currentMilestone uint32) bool {
	timeOK := unixTime == 0 || currentTimeUnix > unixTime
	milestoneOK := milestone == 0 || currentMilestone > milestone
	return timeOK && milestoneOK
}

package ballotbox

// ChoiceSet is the closed set of options a ballot may name. The set is fixed
// at process start; membership is a case-sensitive exact match.
type ChoiceSet []string

func DefaultChoices() ChoiceSet {
	return ChoiceSet{"cats", "dogs"}
}

func (s ChoiceSet) Contains(choice string) bool {
	for _, item := range s {
		if item == choice {
			return true
		}
	}

	return false
}

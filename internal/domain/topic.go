package domain

// Topic is a problem area a mission can be drawn from.
type Topic string

const (
	TopicArrays        Topic = "Arrays"
	TopicStrings       Topic = "Strings"
	TopicHashMaps      Topic = "HashMaps"
	TopicTwoPointers   Topic = "Two Pointers"
	TopicSlidingWindow Topic = "Sliding Window"
	TopicStacks        Topic = "Stacks"
	TopicLinkedLists   Topic = "Linked Lists"
)

var topics = []Topic{
	TopicArrays,
	TopicStrings,
	TopicHashMaps,
	TopicTwoPointers,
	TopicSlidingWindow,
	TopicStacks,
	TopicLinkedLists,
}

// Topics returns a copy of the fixed topic set.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// Valid reports whether t belongs to the fixed topic set.
func (t Topic) Valid() bool {
	for _, known := range topics {
		if t == known {
			return true
		}
	}
	return false
}

package concentrated

import "sort"

// NextInitializedTick searches ticks, sorted by Index, for the nearest initialized tick.
// With lte it returns the largest initialized index <= tick, otherwise the smallest one > tick.
func NextInitializedTick(ticks []Tick, tick int32, lte bool) (next int32, found bool) {
	i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > tick })

	if lte {
		for i--; i >= 0; i-- {
			if ticks[i].Initialized {
				return ticks[i].Index, true
			}
		}
		return 0, false
	}

	for ; i < len(ticks); i++ {
		if ticks[i].Initialized {
			return ticks[i].Index, true
		}
	}
	return 0, false
}

// FindTick returns the tick stored at index in ticks, sorted by Index.
func FindTick(ticks []Tick, index int32) (Tick, bool) {
	i := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index >= index })
	if i < len(ticks) && ticks[i].Index == index {
		return ticks[i], true
	}
	return Tick{}, false
}

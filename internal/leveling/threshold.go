package leveling

// Threshold is the XP needed to advance from level to level+1.
func Threshold(level int) int {
	return 5*level*level + 20*level + 10
}

package listview

import "fmt"

// Plural picks the Russian noun form for n: one for 1, 21, 31...;
// few for 2-4, 22-24...; many for everything else including 11-14.
func Plural(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return one
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return few
	default:
		return many
	}
}

// ProjectCount is the archive caption, e.g. "3 проекта".
func ProjectCount(n int) string {
	return fmt.Sprintf("%d %s", n, Plural(n, "проект", "проекта", "проектов"))
}

// TaskCount is the staff card caption, e.g. "5 задач".
func TaskCount(n int) string {
	return fmt.Sprintf("%d %s", n, Plural(n, "задача", "задачи", "задач"))
}

package calendar

var bgDayNames = [...]string{
	"Понеделник",
	"Вторник",
	"Сряда",
	"Четвъртък",
	"Петък",
	"Събота",
	"Неделя",
}

// DayName returns the Bulgarian weekday name for day 1–7, or "" when out of range.
func DayName(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return bgDayNames[day-1]
}

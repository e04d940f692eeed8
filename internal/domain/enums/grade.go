package enums

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

func ParseGrade(value string) (Grade, bool) {
	grade := Grade(value)
	switch grade {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return grade, true
	}
	return "", false
}

package mesh

// signInResponse is the portal's answer to a successful sign-in.
// expires_at is optional and has been observed missing or malformed;
// callers must not assume it parses.
type signInResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

// eventsResponse wraps the event calendar payload.
type eventsResponse struct {
	Response []eventDTO `json:"response"`
}

// eventDTO is a single calendar event. Only source == "PLAN" entries are
// actual lessons; the calendar mixes in holidays and extracurriculars.
type eventDTO struct {
	Subject     *subjectDTO `json:"subject"`
	SubjectName string      `json:"subject_name"`
	StartAt     string      `json:"start_at"`
	FinishAt    string      `json:"finish_at"`
	Source      string      `json:"source"`
	RoomNumber  string      `json:"room_number"`
	LessonType  string      `json:"lesson_type"`
	Teachers    []teacherDTO `json:"teachers"`
}

type subjectDTO struct {
	Name string `json:"subject_name"`
}

type teacherDTO struct {
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
}

// subject returns the event's subject name, preferring the nested object.
func (e *eventDTO) subject() string {
	if e.Subject != nil && e.Subject.Name != "" {
		return e.Subject.Name
	}
	return e.SubjectName
}

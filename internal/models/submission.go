package models

// Submission is one questionnaire post. Answers is the frontend's JSON
// string and is passed through opaque; nothing here is persisted.
type Submission struct {
	Name       string `form:"name"`
	Email      string `form:"email"`
	Answers    string `form:"answers"`
	Transcript string `form:"transcript"`
}

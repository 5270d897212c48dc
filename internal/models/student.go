package models

import "time"

// Student represents a learner registered in an academic group.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Group     string    `db:"group_name" json:"group"`
	Course    int       `db:"course" json:"course"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BatchStudentInput is one row of a batch registration request.
type BatchStudentInput struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Course int    `json:"course"`
}

// BatchItemResult reports the outcome for a single batch item. Exactly one of
// Student and Error is set.
type BatchItemResult struct {
	Student *Student           `json:"student,omitempty"`
	Error   string             `json:"error,omitempty"`
	Input   *BatchStudentInput `json:"original_input,omitempty"`
}

// BatchRegisterResult summarises a batch registration.
type BatchRegisterResult struct {
	Added   int               `json:"added"`
	Errors  int               `json:"errors"`
	Results []BatchItemResult `json:"results"`
}

// DeletedStudent echoes the id removed by a delete operation.
type DeletedStudent struct {
	DeletedID int64 `json:"deletedId"`
}

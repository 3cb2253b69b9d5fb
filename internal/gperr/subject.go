package gperr

import (
	"strings"
)

//nolint:errname
type withSubject struct {
	Subjects []string
	Err      error
}

const subjectSep = " > "

func prependSubject(subject string, err error) error {
	if err == nil {
		return nil
	}

	//nolint:errorlint
	switch err := err.(type) {
	case *withSubject:
		return err.prepend(subject)
	case Error:
		return err.Subject(subject)
	}
	return &withSubject{[]string{subject}, err}
}

func (err *withSubject) prepend(subject string) *withSubject {
	if subject == "" {
		return err
	}
	clone := *err
	clone.Subjects = append(clone.Subjects[:len(clone.Subjects):len(clone.Subjects)], subject)
	return &clone
}

func (err *withSubject) Is(other error) bool {
	return err.Err == other
}

func (err *withSubject) Unwrap() error {
	return err.Err
}

func (err *withSubject) Error() string {
	// subject is in reversed order
	n := len(err.Subjects)
	var sb strings.Builder
	for i := n - 1; i > 0; i-- {
		sb.WriteString(err.Subjects[i])
		sb.WriteString(subjectSep)
	}
	sb.WriteString(err.Subjects[0])
	sb.WriteString(": ")
	sb.WriteString(err.Err.Error())
	return sb.String()
}

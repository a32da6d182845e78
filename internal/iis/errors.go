package iis

import "fmt"

// DirectiveError reports an unrecognized or structurally invalid #Directive
// line. It is fatal: the stream cannot be interpreted without its header
// directives. Line context is attached once, at the point the offending line
// is known, and never rewrapped.
type DirectiveError struct {
	Msg        string
	LineNumber int
	Line       string
}

func (e *DirectiveError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("line %d: %s", e.LineNumber, e.Msg)
	}
	return e.Msg
}

// VersionError reports a missing, duplicated, or unsupported #Version
// directive.
type VersionError struct {
	DirectiveError
}

// FieldsError reports a missing or duplicated #Fields directive, or an
// invalid field definition within one.
type FieldsError struct {
	DirectiveError
}

// withLine attaches line context to a directive error exactly once.
func withLine(err error, lineNumber int, line string) error {
	switch e := err.(type) {
	case *VersionError:
		if e.LineNumber == 0 {
			e.LineNumber, e.Line = lineNumber, line
		}
	case *FieldsError:
		if e.LineNumber == 0 {
			e.LineNumber, e.Line = lineNumber, line
		}
	case *DirectiveError:
		if e.LineNumber == 0 {
			e.LineNumber, e.Line = lineNumber, line
		}
	}
	return err
}

func directivef(format string, args ...any) *DirectiveError {
	return &DirectiveError{Msg: fmt.Sprintf(format, args...)}
}

func versionf(format string, args ...any) *VersionError {
	return &VersionError{DirectiveError{Msg: fmt.Sprintf(format, args...)}}
}

func fieldsf(format string, args ...any) *FieldsError {
	return &FieldsError{DirectiveError{Msg: fmt.Sprintf(format, args...)}}
}

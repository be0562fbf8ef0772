package boilerplate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"codejudge/internal/judge/model"
	pkgerrors "codejudge/pkg/errors"
)

// Profile identifies a target language for code synthesis.
type Profile string

const (
	ProfilePython     Profile = "python"
	ProfileJavaScript Profile = "javascript"
	ProfileJava       Profile = "java"
)

// Profiles lists every supported profile.
var Profiles = []Profile{ProfilePython, ProfileJava, ProfileJavaScript}

// ParseProfile maps a language name to its profile.
func ParseProfile(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case ProfilePython:
		return ProfilePython, nil
	case ProfileJavaScript:
		return ProfileJavaScript, nil
	case ProfileJava:
		return ProfileJava, nil
	}
	return "", pkgerrors.Newf(pkgerrors.InvalidLanguage, "language %q has no code profile", name)
}

// FunctionName derives the entry point name: spaces removed, first letter lower-cased.
func FunctionName(problemName string) string {
	name := strings.ReplaceAll(problemName, " ", "")
	if name == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(first)) + name[size:]
}

// javaType is the static type table used for signatures, declarations and output variables.
func javaType(t model.FieldType) (string, error) {
	switch t {
	case model.FieldInteger:
		return "int", nil
	case model.FieldString:
		return "String", nil
	case model.FieldBoolean:
		return "boolean", nil
	case model.FieldFloat:
		return "double", nil
	case model.FieldArrayInt:
		return "int[]", nil
	case model.FieldArrayStr:
		return "String[]", nil
	case model.FieldArrayInt2D, model.FieldArrayStr2D:
		return "", unsupported(t)
	}
	return "", unsupported(t)
}

func unsupported(t model.FieldType) error {
	return pkgerrors.Newf(pkgerrors.UnsupportedFieldType, "field type %s is not supported", t).
		WithDetail("field_type", int(t))
}

// checkDynamic validates a type for the dynamically typed profiles, which take literals verbatim.
func checkDynamic(t model.FieldType) error {
	switch t {
	case model.FieldInteger, model.FieldString, model.FieldBoolean, model.FieldFloat,
		model.FieldArrayInt, model.FieldArrayStr:
		return nil
	case model.FieldArrayInt2D, model.FieldArrayStr2D:
		return unsupported(t)
	}
	return unsupported(t)
}

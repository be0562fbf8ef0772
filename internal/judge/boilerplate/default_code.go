package boilerplate

import (
	"fmt"
	"strings"

	"codejudge/internal/judge/model"
	pkgerrors "codejudge/pkg/errors"
)

const (
	pythonDefaultTemplate = "class Solution:\n    def %s(%s):\n        # write your code here\n"

	javascriptDefaultTemplate = "function %s(%s) {\n    // write your code here\n}\n"

	javaDefaultTemplate = "class Solution {\n    public static %s %s(%s) {\n        //write your code here\n    }\n}\n"
)

// DefaultCode renders the starter stub for every profile from one testcase's field layout.
func DefaultCode(problemName string, fields []model.ValueField) (map[Profile]string, error) {
	out := make(map[Profile]string, len(Profiles))
	for _, profile := range Profiles {
		code, err := DefaultCodeFor(profile, problemName, fields)
		if err != nil {
			return nil, err
		}
		out[profile] = code
	}
	return out, nil
}

// DefaultCodeFor renders the starter stub for one profile.
func DefaultCodeFor(profile Profile, problemName string, fields []model.ValueField) (string, error) {
	funcName := FunctionName(problemName)
	if funcName == "" {
		return "", pkgerrors.ValidationError("name", "problem name is empty")
	}

	var (
		names      []string
		typed      []string
		returnType string
		hasOutput  bool
	)
	for _, f := range fields {
		if profile == ProfileJava {
			jt, err := javaType(f.Type)
			if err != nil {
				return "", err
			}
			if f.IsOutput() {
				returnType = jt
				hasOutput = true
				continue
			}
			typed = append(typed, jt+" "+f.Name)
			continue
		}
		if err := checkDynamic(f.Type); err != nil {
			return "", err
		}
		if f.IsOutput() {
			hasOutput = true
			continue
		}
		names = append(names, f.Name)
	}
	if !hasOutput {
		return "", pkgerrors.Newf(pkgerrors.TestCaseInvalid, "testcase has no %q field", model.OutputFieldName)
	}

	switch profile {
	case ProfilePython:
		params := append([]string{"self"}, names...)
		return fmt.Sprintf(pythonDefaultTemplate, funcName, strings.Join(params, ", ")), nil
	case ProfileJavaScript:
		return fmt.Sprintf(javascriptDefaultTemplate, funcName, strings.Join(names, ", ")), nil
	case ProfileJava:
		return fmt.Sprintf(javaDefaultTemplate, returnType, funcName, strings.Join(typed, ", ")), nil
	}
	return "", pkgerrors.Newf(pkgerrors.InvalidLanguage, "unknown profile %q", profile)
}

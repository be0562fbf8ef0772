package boilerplate

import (
	"strings"
	"text/template"

	"codejudge/internal/judge/model"
	pkgerrors "codejudge/pkg/errors"
)

var (
	pythonRunnable = template.Must(template.New("python").Parse(`
from typing import List

{{.Source}}

{{.ReadInputs}}

sol = Solution()
print(sol.{{.Func}}({{.Args}}), end='')
`))

	javascriptRunnable = template.Must(template.New("javascript").Parse(`
{{.Source}}

{{.ReadInputs}}

let val = {{.Func}}({{.Args}});
console.log(val);
`))

	javaRunnable = template.Must(template.New("java").Parse(`
{{.Source}}

class Main{

    public static void printIntArray(int[] out){
        System.out.print("[");
        for (int i=0; i<out.length; i++){
            if (i == 0)
                System.out.print(out[i]);
            else
                System.out.print(", " + out[i]);
        }
        System.out.print("]");
    }

    public static void printStringArray(String[] out){
        System.out.print("[");
        for (int i=0; i<out.length; i++){
            if (i == 0)
                System.out.print(out[i]);
            else
                System.out.print(", " + out[i]);
        }
        System.out.print("]");
    }

    public static void main(String args[]){
        {{.ReadInputs}}

        Solution sol = new Solution();
        {{.OutType}} output = sol.{{.Func}}({{.Args}});
        {{.OutPrint}}
    }
}
`))
)

type programData struct {
	Source     string
	ReadInputs string
	Func       string
	Args       string
	OutType    string
	OutPrint   string
}

// Runnable renders one program per selected testcase of problem for language.
// The selection is the sample testcases when sampleOnly is set, otherwise all of them.
func Runnable(source string, problem *model.Problem, language model.Language, sampleOnly bool) ([]string, error) {
	if problem == nil {
		return nil, pkgerrors.New(pkgerrors.InvalidProblem)
	}
	profile, err := ParseProfile(language.Name)
	if err != nil {
		return nil, err
	}
	funcName := FunctionName(problem.Name)
	testcases := problem.SelectTestCases(sampleOnly)
	programs := make([]string, 0, len(testcases))
	for _, tc := range testcases {
		program, err := RenderProgram(profile, source, funcName, tc)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	return programs, nil
}

// RenderProgram wraps source into a self-contained program that calls funcName with
// the testcase's parameters and prints the result.
func RenderProgram(profile Profile, source, funcName string, tc model.TestCase) (string, error) {
	output, ok := tc.Output()
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.TestCaseInvalid, "testcase has no %q field", model.OutputFieldName)
	}
	params := tc.Params()
	args := make([]string, 0, len(params))
	var inputs strings.Builder
	for _, f := range params {
		decl, err := declare(profile, f)
		if err != nil {
			return "", err
		}
		inputs.WriteString(decl)
		inputs.WriteByte('\n')
		args = append(args, f.Name)
	}

	data := programData{
		Source:     source,
		ReadInputs: inputs.String(),
		Func:       funcName,
		Args:       strings.Join(args, ","),
	}

	var tmpl *template.Template
	switch profile {
	case ProfilePython:
		if err := checkDynamic(output.Type); err != nil {
			return "", err
		}
		tmpl = pythonRunnable
	case ProfileJavaScript:
		if err := checkDynamic(output.Type); err != nil {
			return "", err
		}
		tmpl = javascriptRunnable
	case ProfileJava:
		outType, outPrint, err := javaOutput(output.Type)
		if err != nil {
			return "", err
		}
		data.OutType = outType
		data.OutPrint = outPrint
		tmpl = javaRunnable
	default:
		return "", pkgerrors.Newf(pkgerrors.InvalidLanguage, "unknown profile %q", profile)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.JudgeSystemError, "render %s program failed", profile)
	}
	return b.String(), nil
}

// declare renders one parameter as a local variable declaration.
func declare(profile Profile, f model.ValueField) (string, error) {
	switch profile {
	case ProfilePython:
		if err := checkDynamic(f.Type); err != nil {
			return "", err
		}
		value := f.Value
		if f.Type == model.FieldBoolean {
			value = pythonBool(value)
		}
		return f.Name + " = " + value, nil
	case ProfileJavaScript:
		if err := checkDynamic(f.Type); err != nil {
			return "", err
		}
		value := f.Value
		if f.Type == model.FieldBoolean {
			value = strings.ToLower(value)
		}
		return "let " + f.Name + " = " + value + ";", nil
	case ProfileJava:
		jt, err := javaType(f.Type)
		if err != nil {
			return "", err
		}
		switch f.Type {
		case model.FieldArrayInt, model.FieldArrayStr:
			return jt + " " + f.Name + " = new " + jt + " { " + stripBrackets(f.Value) + " };", nil
		case model.FieldBoolean:
			return jt + " " + f.Name + " = " + strings.ToLower(f.Value) + ";", nil
		default:
			return jt + " " + f.Name + " = " + f.Value + ";", nil
		}
	}
	return "", pkgerrors.Newf(pkgerrors.InvalidLanguage, "unknown profile %q", profile)
}

func javaOutput(t model.FieldType) (string, string, error) {
	jt, err := javaType(t)
	if err != nil {
		return "", "", err
	}
	switch t {
	case model.FieldArrayInt:
		return jt, "Main.printIntArray(output);", nil
	case model.FieldArrayStr:
		return jt, "Main.printStringArray(output);", nil
	}
	return jt, "System.out.print(output);", nil
}

func stripBrackets(value string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(value)
}

func pythonBool(value string) string {
	v, _ := model.CanonicalBool(value)
	return v
}

// ExpandEscapes turns the two-character sequences \n and \t into a newline and a tab.
func ExpandEscapes(program string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(program)
}

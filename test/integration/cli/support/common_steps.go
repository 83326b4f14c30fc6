package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// iRunCommand runs a qrscan command line. A leading "qrscan" resolves to
// the binary named by QRSCAN_BIN.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "qrscan" {
		if bin := os.Getenv("QRSCAN_BIN"); bin != "" {
			parts[0] = bin
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, unescape(expectedText)) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, unescape(text)) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBe(expected *godog.DocString) error {
	if testCtx.LastOutput != expected.Content+"\n" {
		return fmt.Errorf("output mismatch\nExpected:\n%s\nActual:\n%s", expected.Content, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return nil
}

// theJSONShouldContain verifies the JSON output has the dotted field path.
// A numeric segment indexes an array.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	_, err := jsonLookup(testCtx.LastOutput, field)
	return err
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	val, err := jsonLookup(testCtx.LastOutput, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, got, expected)
	}
	return nil
}

func jsonLookup(doc, field string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	current := data
	parts := strings.Split(field, ".")
	for i, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			val, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
			}
			current = val
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("index '%s' out of range in JSON", strings.Join(parts[:i+1], "."))
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate deeper into non-object field '%s'", strings.Join(parts[:i], "."))
		}
	}
	return current, nil
}

// theOutputShouldBeValidCSV verifies the output parses as CSV with a header.
func (testCtx *TestContext) theOutputShouldBeValidCSV() error {
	rows, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(rows) < 2 {
		return errors.New("CSV output has no data rows")
	}
	if rows[0][0] != "file" {
		return fmt.Errorf("unexpected CSV header: %v", rows[0])
	}
	return nil
}

// theErrorShouldMention verifies stdout, stderr or the error mention text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	full := testCtx.LastOutput + " " + testCtx.LastStderr
	if testCtx.LastError != nil {
		full += " " + testCtx.LastError.Error()
	}
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

func (testCtx *TestContext) theStderrShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("stderr does not contain '%s'\nActual stderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(filename string) error {
	fullPath := testCtx.Path(filename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", fullPath)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	content, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !strings.Contains(string(content), unescape(expectedContent)) {
		return fmt.Errorf("file %s does not contain '%s'\nActual content: %s",
			filename, expectedContent, string(content))
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substituteCommandVariables(value))
	return nil
}

// unescape turns the two-character sequence \n into a newline so feature
// files can express multi-line expectations inline.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// RegisterCommonSteps registers command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be:$`, testCtx.theOutputShouldBe)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid CSV$`, testCtx.theOutputShouldBeValidCSV)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.theStderrShouldContain)

	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}

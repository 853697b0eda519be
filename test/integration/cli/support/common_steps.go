package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/qrscan/cmd/qrscan/cmd"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

// RegisterCommonSteps registers fixture, command and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR code image "([^"]*)" containing "([^"]*)"$`, testCtx.aQRCodeImageContaining)
	sc.Step(`^an image "([^"]*)" without QR codes$`, testCtx.anImageWithoutQRCodes)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^a directory "([^"]*)"$`, testCtx.aDirectory)

	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be empty$`, testCtx.theOutputShouldBeEmpty)
	sc.Step(`^the output should have (\d+) lines?$`, testCtx.theOutputShouldHaveLines)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

func (testCtx *TestContext) aQRCodeImageContaining(name, content string) error {
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	img, err := testutil.GenerateSymbolImage(cfg)
	if err != nil {
		return err
	}
	return testCtx.saveImage(name, img)
}

func (testCtx *TestContext) anImageWithoutQRCodes(name string) error {
	return testCtx.saveImage(name, testutil.CreateTestImage(120, 80, color.White))
}

func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return imaging.Save(img, path)
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

func (testCtx *TestContext) aDirectory(name string) error {
	return os.MkdirAll(testCtx.path(name), 0o750)
}

// iRunCommand runs a qrscan command line in-process. The leading program
// name is optional.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.expand(command)
	testCtx.LastCommand = command

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "qrscan" {
		args = args[1:]
	}

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetIn(&bytes.Buffer{})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	testCtx.LastError = root.Execute()
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nOutput: %s\nStderr: %s",
			testCtx.LastCommand, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded when it should have failed\nOutput: %s",
			testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return errors.New("no error occurred")
	}
	text = testCtx.expand(text)
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, text)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	text = testCtx.expand(text)
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output does not contain %q\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	text = testCtx.expand(text)
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains %q\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeEmpty() error {
	if strings.TrimSpace(testCtx.LastOutput) != "" {
		return fmt.Errorf("expected no output, got: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldHaveLines(n int) error {
	lines := strings.Split(strings.TrimRight(testCtx.LastOutput, "\n"), "\n")
	if len(lines) != n {
		return fmt.Errorf("expected %d lines, got %d\nActual output: %s", n, len(lines), testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, want string) error {
	return checkJSONField(testCtx.LastOutput, field, testCtx.expand(want))
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain %q\nContent: %s", name, text, data)
	}
	return nil
}

// checkJSONField compares the value at a dotted path such as
// "symbols.0.rawValue" with want.
func checkJSONField(doc, field, want string) error {
	var data any
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	got, err := lookupJSON(data, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != want {
		return fmt.Errorf("field %s is %q, want %q", field, s, want)
	}
	return nil
}

func lookupJSON(data any, field string) (any, error) {
	current := data
	for part := range strings.SplitSeq(field, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[part]
			if !ok {
				return nil, fmt.Errorf("field %s not found", field)
			}
			current = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(v) {
				return nil, fmt.Errorf("index %s out of range in %s", part, field)
			}
			current = v[i]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %s", field, part)
		}
	}
	return current, nil
}

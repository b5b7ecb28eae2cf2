package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E005", "page not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "page not found", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("E004", "CUE load failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E004]: CUE load failed")
}

func TestOutputFormatter_VerboseLogToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errBuf,
		Verbose:   true,
	}

	formatter.VerboseLog("checking %d files", 3)
	assert.Empty(t, out.String())
	assert.Contains(t, errBuf.String(), "checking 3 files")
}

func TestOutputFormatter_VerboseLogSuppressed(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: false}

	formatter.VerboseLog("should not appear")
	assert.Empty(t, buf.String())
}

func TestExitErrorCodes(t *testing.T) {
	cmdErr := NewExitError(ExitCommandError, "bad path")
	assert.Equal(t, ExitCommandError, GetExitCode(cmdErr))
	assert.Equal(t, "bad path", cmdErr.Error())

	wrapped := WrapExitError(ExitFailure, "sync failed", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "boom")
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")

	// Wrapping preserves the code through error chains.
	outer := fmt.Errorf("context: %w", wrapped)
	assert.Equal(t, ExitFailure, GetExitCode(outer))

	// Plain errors default to failure.
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

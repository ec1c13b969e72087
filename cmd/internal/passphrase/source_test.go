package passphrase

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSource(env map[string]string, terminal bool, typed string, readErr error) (*Source, *int) {
	reads := 0
	src := NewSource("TEST_PASS", "operator keystore")
	src.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	src.isTerminal = func() bool { return terminal }
	src.readPassword = func() ([]byte, error) {
		reads++
		return []byte(typed), readErr
	}
	src.prompt = &bytes.Buffer{}
	return src, &reads
}

func TestSourcePrefersEnvironment(t *testing.T) {
	src, reads := testSource(map[string]string{"TEST_PASS": "from-env"}, true, "typed", nil)
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
	require.Zero(t, *reads)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	src, _ := testSource(map[string]string{"TEST_PASS": "  "}, true, "typed", nil)
	_, err := src.Get()
	require.ErrorContains(t, err, "TEST_PASS is set but empty")
}

func TestSourcePromptsOnceAndCaches(t *testing.T) {
	src, reads := testSource(nil, true, "typed", nil)
	for i := 0; i < 2; i++ {
		value, err := src.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", value)
	}
	require.Equal(t, 1, *reads)
	require.Contains(t, src.prompt.(*bytes.Buffer).String(), "Enter operator keystore passphrase")
}

func TestSourceFailures(t *testing.T) {
	src, _ := testSource(nil, false, "", nil)
	_, err := src.Get()
	require.ErrorContains(t, err, "set TEST_PASS or run interactively")

	src, _ = testSource(nil, true, "   ", nil)
	_, err = src.Get()
	require.ErrorContains(t, err, "cannot be empty")

	src, _ = testSource(nil, true, "", errors.New("tty closed"))
	_, err = src.Get()
	require.ErrorContains(t, err, "tty closed")
}

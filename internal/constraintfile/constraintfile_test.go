package constraintfile_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/constraintfile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const example = `
constraints:
- base: {super: p, sub: a}
- simple: {sub: p, super: q}
- load: {sub: q, super: r}
- store: {sub: r, super: p}
`

func TestParse(t *testing.T) {
	cs, err := constraintfile.Parse([]byte(example))
	require.NoError(t, err)

	want := []andersen.Constraint{
		andersen.Base{Super: "p", Sub: "a"},
		andersen.Simple{Sub: "p", Super: "q"},
		andersen.Load("q", "r"),
		andersen.Store("r", "p"),
	}
	if diff := cmp.Diff(want, cs, cmpopts.IgnoreUnexported(andersen.Base{}, andersen.Simple{}, andersen.Complex{})); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	cs, err := constraintfile.Read(strings.NewReader(example))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, constraintfile.Write(&buf, cs))

	again, err := constraintfile.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, cs, again)
}

func TestMalformed(t *testing.T) {
	for name, src := range map[string]string{
		"NoKind":       "constraints:\n- {}\n",
		"TwoKinds":     "constraints:\n- base: {super: p, sub: a}\n  simple: {sub: p, super: q}\n",
		"EmptyName":    "constraints:\n- simple: {sub: p}\n",
		"UnknownField": "constraints:\n- base: {super: p, sub: a, extra: 1}\n",
		"UnknownKind":  "constraints:\n- copy: {sub: p, super: q}\n",
		"NotAList":     "constraints: 3\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := constraintfile.Parse([]byte(src))
			assert.Error(t, err)
		})
	}

	_, err := constraintfile.Parse([]byte("constraints:\n- {}\n"))
	assert.ErrorIs(t, err, constraintfile.ErrMalformed)
}

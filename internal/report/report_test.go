package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatus = `Mon Jan 15 10:42:01 2024       
+---------------------------------------------------------------------------------------+
| NVIDIA-SMI 535.129.03             Driver Version: 535.129.03   CUDA Version: 12.2     |
|-----------------------------------------+----------------------+----------------------+
`

func TestHeadline(t *testing.T) {
	tests := []struct {
		name      string
		firstLine string
		amount    string
		want      string
	}{
		{
			name:      "right aligned to column 79",
			firstLine: "Mon Jan 15 10:42:01 2024",
			amount:    "133.24gCO2eq/h",
			want:      "Mon Jan 15 10:42:01 2024" + strings.Repeat(" ", 79-24-14) + "133.24gCO2eq/h",
		},
		{
			name:      "surrounding whitespace trimmed",
			firstLine: "  Mon Jan 15 10:42:01 2024   ",
			amount:    "1.00 lightbulbs",
			want:      "Mon Jan 15 10:42:01 2024" + strings.Repeat(" ", 79-24-15) + "1.00 lightbulbs",
		},
		{
			name:      "too long for the line is not truncated",
			firstLine: strings.Repeat("x", 75),
			amount:    "12.34W",
			want:      strings.Repeat("x", 75) + "12.34W",
		},
		{
			name:      "first line longer than the width",
			firstLine: strings.Repeat("x", 90),
			amount:    "1.00W",
			want:      strings.Repeat("x", 90) + "1.00W",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Headline(tt.firstLine, tt.amount)
			assert.Equal(t, tt.want, got)
			if len(tt.firstLine) < 60 {
				assert.Equal(t, HeadlineWidth, len(got))
			}
		})
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleStatus, "133.24gCO2eq/h"))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, HeadlineWidth, len(lines[0]))
	assert.True(t, strings.HasPrefix(lines[0], "Mon Jan 15 10:42:01 2024 "))
	assert.True(t, strings.HasSuffix(lines[0], "133.24gCO2eq/h"))

	assert.Contains(t, lines[2], "NVIDIA-CO2 535.129.03")
	assert.NotContains(t, buf.String(), "-SMI")
	assert.Equal(t, "", lines[4], "output ends with a newline")
}

func TestRender_CRLF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Mon Jan 15\r\n| NVIDIA-SMI |\r\n", "1.00W"))

	assert.Equal(t, Headline("Mon Jan 15", "1.00W")+"\n| NVIDIA-CO2 |\n", buf.String())
}

func TestRender_EmptyStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "", "1.00W"))

	assert.Equal(t, strings.Repeat(" ", 74)+"1.00W\n\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestRender_WriteError(t *testing.T) {
	err := Render(failingWriter{}, sampleStatus, "1.00W")
	assert.ErrorContains(t, err, "broken pipe")
}

func TestRebrand(t *testing.T) {
	assert.Equal(t, "NVIDIA-CO2 and NVIDIA-CO2", Rebrand("NVIDIA-SMI and NVIDIA-SMI"))
	assert.Equal(t, "nvidia-smi", Rebrand("nvidia-smi"))
}

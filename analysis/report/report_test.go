package report

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-analysis/kestrel/ir"
)

func pt(fn string, block, index int) ir.Point {
	return ir.Point{Func: fn, Block: block, Index: index}
}

func TestAggregate(t *testing.T) {
	findings := []Finding{
		{Point: pt("g", 0, 0), Cause: Overflow, Confidence: Medium},
		{Point: pt("f", 1, 2), Cause: UseAfterFree, Confidence: Medium},
		{Point: pt("f", 1, 2), Cause: UseAfterFree, Confidence: High},
		{Point: pt("f", 1, 2), Cause: UseAfterFree, Confidence: Low},
		{Point: pt("f", 0, 3), Cause: DivByZero, Confidence: Low},
		{Point: pt("f", 0, 3), Cause: Overflow, Confidence: Low},
	}

	got := Aggregate(findings)
	require.Len(t, got, 4, "duplicates should collapse")

	// Ordered by point, then cause; the duplicate keeps its best confidence.
	assert.Equal(t, pt("f", 0, 3), got[0].Point)
	assert.Equal(t, Overflow, got[0].Cause)
	assert.Equal(t, DivByZero, got[1].Cause)
	assert.Equal(t, pt("f", 1, 2), got[2].Point)
	assert.Equal(t, High, got[2].Confidence)
	assert.Equal(t, pt("g", 0, 0), got[3].Point)
}

func TestFilter(t *testing.T) {
	findings := []Finding{
		{Point: pt("f", 0, 0), Cause: Overflow},
		{Point: pt("f", 0, 1), Cause: UseAfterFree},
		{Point: pt("f", 0, 2), Cause: DoubleFree},
		{Point: pt("f", 0, 3), Cause: Unreachable},
	}

	got := Filter(findings, []Cause{DoubleFree}, false)
	require.Len(t, got, 3)
	for _, f := range got {
		assert.NotEqual(t, DoubleFree, f.Cause)
	}

	got = Filter(findings, nil, true)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.True(t, f.Cause.MemorySafety())
	}

	got = Filter(findings, []Cause{UseAfterFree}, true)
	require.Len(t, got, 1)
	assert.Equal(t, DoubleFree, got[0].Cause)
}

func TestExitCode(t *testing.T) {
	clean := &Report{Funcs: []FuncMeta{{Name: "f", Status: "Stable"}}}
	assert.Equal(t, 0, clean.ExitCode(false))
	assert.Equal(t, 0, clean.ExitCode(true))

	warnings := &Report{Findings: []Finding{{Cause: Overflow, Confidence: Medium}}}
	assert.Equal(t, 0, warnings.ExitCode(false))
	assert.Equal(t, 1, warnings.ExitCode(true), "deny-warnings promotes warnings")

	errors := &Report{Findings: []Finding{{Cause: DoubleFree, Confidence: High}}}
	assert.Equal(t, 1, errors.ExitCode(false))

	malformed := &Report{
		Findings: []Finding{{Cause: DoubleFree, Confidence: High}},
		Funcs:    []FuncMeta{{Name: "f", Malformed: true}},
	}
	assert.Equal(t, 2, malformed.ExitCode(false), "malformed input dominates")
}

func TestParseCause(t *testing.T) {
	for c, name := range causeNames {
		parsed, err := ParseCause(name)
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCause("bogus")
	assert.Error(t, err)
}

func TestConfidenceDegrade(t *testing.T) {
	assert.Equal(t, Medium, High.Degrade())
	assert.Equal(t, Low, Medium.Degrade())
	assert.Equal(t, Low, Low.Degrade(), "low does not degrade further")
}

func sampleReport() *Report {
	return &Report{
		Findings: []Finding{
			{
				Point:      pt("f", 0, 1),
				Cause:      DoubleFree,
				Confidence: High,
				Message:    "double free through p",
				Snippet:    "p ↦ {obj(f:0:0)}",
			},
			{
				Point:      pt("f", 2, 0),
				Cause:      Overflow,
				Confidence: Medium,
				Message:    "a + b evaluates to [256, 300], outside the range of u8",
				Snippet:    "a ↦ [200, 255], b ↦ [56, 56]",
			},
		},
		Funcs: []FuncMeta{
			{Name: "f", Status: "Stable", PrecisionLost: true, Visits: 12},
			{Name: "g", Status: "Stable", Malformed: true, Err: "block 0: missing terminator"},
		},
	}
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteText(&buf))
	goldie.New(t).Assert(t, "text_report", buf.Bytes())
}

func TestWriteTextEmpty(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, (&Report{}).WriteText(&buf))
	assert.Equal(t, "no findings\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteJSON(&buf))
	goldie.New(t).Assert(t, "json_report", buf.Bytes())
}

func TestWriteJSONEmptyFindings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Report{}).WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"findings": []`,
		"a clean report serializes an empty list, not null")
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, (&Report{}).Write(&buf, "xml"))
}

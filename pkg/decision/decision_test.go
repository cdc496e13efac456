package decision

import (
	"errors"
	"io"
	"testing"

	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrompter struct {
	answers []string
	prompts []string
	lines   []string
	clears  int
}

func (f *fakePrompter) Ask(message string) (string, error) {
	f.prompts = append(f.prompts, message)
	if len(f.answers) == 0 {
		return "", io.EOF
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func (f *fakePrompter) Puts(text string) error {
	f.lines = append(f.lines, text)
	return nil
}

func (f *fakePrompter) ClearLine() error {
	f.clears++
	return nil
}

type call struct {
	action Action
	step   *scenario.Step
}

type recordingController struct {
	calls []call
}

func (r *recordingController) AddStep(s *scenario.Step) { r.calls = append(r.calls, call{AddStep, s}) }
func (r *recordingController) SkipToNext(s *scenario.Step) {
	r.calls = append(r.calls, call{SkipToNext, s})
}
func (r *recordingController) AskToQuit(s *scenario.Step) {
	r.calls = append(r.calls, call{AskToQuit, s})
}

func steps(names ...string) []*scenario.Step {
	var out []*scenario.Step
	for _, n := range names {
		out = append(out, &scenario.Step{Name: n, Description: "Step " + n})
	}
	return out
}

func TestTable_Filter(t *testing.T) {
	cases := map[string]Action{
		"y": AddStep, "yes": AddStep, " YES ": AddStep, "Y\n": AddStep,
		"n": SkipToNext, "no": SkipToNext, "next": SkipToNext, "No": SkipToNext,
		"q": AskToQuit, "quit": AskToQuit, " Quit": AskToQuit,
	}
	for answer, want := range cases {
		got, ok := DefaultTable.Filter(answer)
		assert.True(t, ok, answer)
		assert.Equal(t, want, got, answer)
	}
	for _, answer := range []string{"", "maybe", "1", "yess", "exit"} {
		_, ok := DefaultTable.Filter(answer)
		assert.False(t, ok, answer)
	}
}

func TestAskDecision(t *testing.T) {
	for answer, want := range map[string]Action{"y": AddStep, "no": SkipToNext, "q": AskToQuit} {
		p := &fakePrompter{answers: []string{answer}}
		got, err := NewEngine(p).AskDecision("Continue with step [Fix it]?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, []string{"Continue with step [Fix it]?, [y(yes), n(no), q(quit)]"}, p.prompts)
		assert.Equal(t, 1, p.clears)
	}
}

func TestAskDecision_UnrecognizedAnswerPromptsOnceMore(t *testing.T) {
	p := &fakePrompter{answers: []string{"maybe", "", "yes"}}
	got, err := NewEngine(p).AskDecision("Continue?")
	require.NoError(t, err)
	assert.Equal(t, AddStep, got)
	assert.Len(t, p.prompts, 3)
	assert.Equal(t, 1, p.clears)
}

func TestAskDecision_InputClosed(t *testing.T) {
	p := &fakePrompter{answers: []string{"what"}}
	_, err := NewEngine(p).AskDecision("Continue?")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, p.clears, "prompt line cleared on error too")
}

func TestAskToSelect_EachIndex(t *testing.T) {
	list := steps("a", "b", "c")
	for i := 1; i <= len(list); i++ {
		p := &fakePrompter{answers: []string{string(rune('0' + i))}}
		sel, err := NewEngine(p).AskToSelect("Select step to continue", list)
		require.NoError(t, err)
		assert.Same(t, list[i-1], sel.Step)
		assert.False(t, sel.Quit)
		assert.Equal(t, []string{"Select step to continue, [n(next), q(quit)]"}, p.prompts)
	}
}

func TestAskToSelect_QuitAndNone(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		p := &fakePrompter{answers: []string{"quit"}}
		sel, err := NewEngine(p).AskToSelect("Select", steps("a", "b", "c", "d", "e")[:n])
		require.NoError(t, err)
		assert.True(t, sel.Quit)
		assert.Nil(t, sel.Step)
	}

	p := &fakePrompter{answers: []string{"next"}}
	sel, err := NewEngine(p).AskToSelect("Select", steps("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, Selection{}, sel)
}

func TestAskToSelect_OutOfRangePromptsAgain(t *testing.T) {
	list := steps("a", "b")
	p := &fakePrompter{answers: []string{"0", "3", "99999999999999999999", "-1", "b", "2"}}
	sel, err := NewEngine(p).AskToSelect("Select", list)
	require.NoError(t, err)
	assert.Same(t, list[1], sel.Step)
	assert.Len(t, p.prompts, 6)
	assert.Equal(t, 1, p.clears)
}

func TestOnNextSteps_Single(t *testing.T) {
	list := steps("fix")
	cases := map[string]Action{"y": AddStep, "n": SkipToNext, "q": AskToQuit}
	for answer, want := range cases {
		p := &fakePrompter{answers: []string{answer}}
		c := &recordingController{}
		require.NoError(t, NewEngine(p).OnNextSteps(c, list))
		assert.Equal(t, []call{{want, list[0]}}, c.calls)
		assert.Equal(t, []string{"Continue with step [Step fix]?, [y(yes), n(no), q(quit)]"}, p.prompts)
		assert.Empty(t, p.lines, "no selection list for a single step")
	}
}

func TestOnNextSteps_Multiple(t *testing.T) {
	list := steps("a", "b")

	p := &fakePrompter{answers: []string{"2"}}
	c := &recordingController{}
	require.NoError(t, NewEngine(p).OnNextSteps(c, list))
	assert.Equal(t, []string{"There are multiple steps to proceed:", "1) Step a", "2) Step b"}, p.lines)
	assert.Equal(t, []call{{AddStep, list[1]}}, c.calls)

	p = &fakePrompter{answers: []string{"q"}}
	c = &recordingController{}
	require.NoError(t, NewEngine(p).OnNextSteps(c, list))
	assert.Equal(t, []call{{AskToQuit, nil}}, c.calls)

	p = &fakePrompter{answers: []string{"n"}}
	c = &recordingController{}
	require.NoError(t, NewEngine(p).OnNextSteps(c, list))
	assert.Empty(t, c.calls)
}

func TestOnNextSteps_NoneDoesNothing(t *testing.T) {
	p := &fakePrompter{}
	c := &recordingController{}
	require.NoError(t, NewEngine(p).OnNextSteps(c, nil))
	assert.Empty(t, p.prompts)
	assert.Empty(t, c.calls)
}

func TestOnNextSteps_PropagatesInputErrors(t *testing.T) {
	c := &recordingController{}
	err := NewEngine(&fakePrompter{}).OnNextSteps(c, steps("a", "b"))
	assert.True(t, errors.Is(err, io.EOF))
	assert.Empty(t, c.calls)
}

func TestDispatch_UnknownActionPanics(t *testing.T) {
	assert.Panics(t, func() { Dispatch(&recordingController{}, Action("retry"), nil) })
}

func TestWithTable(t *testing.T) {
	p := &fakePrompter{answers: []string{"ja"}}
	got, err := NewEngine(p, WithTable(Table{"ja": AddStep})).AskDecision("Weiter?")
	require.NoError(t, err)
	assert.Equal(t, AddStep, got)
}

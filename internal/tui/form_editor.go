package tui

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/form"
)

// form field indexes; subtask rows follow the fixed fields.
const (
	fieldTitle = iota
	fieldDescription
	fieldFirstSubtask
)

// formEditor holds the text inputs backing the open task form.
type formEditor struct {
	editMode    bool
	taskID      string
	lane        domain.LaneID
	title       textinput.Model
	description textinput.Model
	subtasks    []textinput.Model
	focus       int
}

// newModalInput constructs one form input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// newSubtaskInput constructs one subtask row.
func newSubtaskInput(value string) textinput.Model {
	return newModalInput("• ", "subtask", value, 120)
}

// newFormEditor builds inputs from the coordinator's selection and fields.
func newFormEditor(v app.View) formEditor {
	f := formEditor{
		editMode:    v.Selection.EditMode,
		taskID:      v.Selection.ActiveTaskID,
		lane:        v.Fields.Lane,
		title:       newModalInput("title: ", "task title (required)", v.Fields.Title, 120),
		description: newModalInput("notes: ", "markdown description", v.Fields.Description, 2000),
	}
	f.setSubtasks(v.Fields.Subtasks)
	return f
}

// setSubtasks replaces the subtask rows, keeping focus in range.
func (f *formEditor) setSubtasks(values []string) {
	f.subtasks = make([]textinput.Model, 0, len(values))
	for _, value := range values {
		f.subtasks = append(f.subtasks, newSubtaskInput(value))
	}
	f.focus = clamp(f.focus, 0, f.fieldCount()-1)
}

// fieldCount returns the number of focusable inputs.
func (f formEditor) fieldCount() int {
	return fieldFirstSubtask + len(f.subtasks)
}

// fields returns the current input values.
func (f formEditor) fields() form.Fields {
	subtasks := make([]string, 0, len(f.subtasks))
	for _, in := range f.subtasks {
		subtasks = append(subtasks, in.Value())
	}
	return form.Fields{
		Title:       f.title.Value(),
		Description: f.description.Value(),
		Lane:        f.lane,
		Subtasks:    subtasks,
	}
}

// focusedSubtask returns the focused subtask row index.
func (f formEditor) focusedSubtask() (int, bool) {
	idx := f.focus - fieldFirstSubtask
	if idx < 0 || idx >= len(f.subtasks) {
		return 0, false
	}
	return idx, true
}

// input returns a pointer to the input at idx.
func (f *formEditor) input(idx int) *textinput.Model {
	switch {
	case idx == fieldTitle:
		return &f.title
	case idx == fieldDescription:
		return &f.description
	case idx-fieldFirstSubtask < len(f.subtasks):
		return &f.subtasks[idx-fieldFirstSubtask]
	}
	return nil
}

// focusField moves focus to idx, clamped to the available inputs.
func (f *formEditor) focusField(idx int) tea.Cmd {
	f.focus = clamp(idx, 0, f.fieldCount()-1)
	for i := 0; i < f.fieldCount(); i++ {
		f.input(i).Blur()
	}
	return f.input(f.focus).Focus()
}

// onLastField reports whether enter should commit rather than advance.
func (f formEditor) onLastField() bool {
	return f.focus >= f.fieldCount()-1
}

// update routes msg to the focused input.
func (f *formEditor) update(msg tea.Msg) tea.Cmd {
	in := f.input(f.focus)
	if in == nil {
		return nil
	}
	next, cmd := in.Update(msg)
	*in = next
	return cmd
}

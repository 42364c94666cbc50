package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/drag"
	"github.com/hylla/lanes/internal/form"
)

// Service is the command surface the board drives.
type Service interface {
	View() app.View
	LaneSet() domain.LaneSet
	OpenCreate() app.View
	OpenEdit(string) (app.View, error)
	CloseForm() app.View
	UpdateFields(form.Fields) (app.View, error)
	AddSubtask() app.View
	RemoveSubtask(int) app.View
	Commit(context.Context, form.Fields) (app.View, domain.Task, error)
	DeleteActive(context.Context) (app.View, error)
	MoveTask(context.Context, string, domain.LaneID) (app.View, error)
	StartDrag(string) (app.View, bool)
	EndDrag(context.Context, drag.Drop) (app.View, drag.Result)
	CancelDrag() app.View
	SetHitTester(drag.HitTester)
	RecentActivity(context.Context, int) ([]domain.ChangeEvent, error)
}

// inputMode represents the active overlay.
type inputMode int

// modeBoard and related constants name the overlays.
const (
	modeBoard inputMode = iota
	modeForm
	modeConfirmDelete
	modeInfo
	modeActivity
)

// activityLimit caps the activity overlay.
const activityLimit = 50

// Model is the bubbletea model for the board.
type Model struct {
	svc Service
	ctx context.Context

	ready  bool
	width  int
	height int
	status string

	help     help.Model
	keys     keyMap
	formKeys formKeyMap

	view      app.View
	lanes     []domain.Lane
	laneNames map[domain.LaneID]string
	selLane   int
	selTask   int

	mode          inputMode
	editor        formEditor
	confirmDelete bool
	confirmBack   inputMode
	infoTaskID    string
	activity      []domain.ChangeEvent

	// dragTarget is the lane index a keyboard drag would drop into.
	dragTarget  int
	dragByMouse bool
	hoverLane   domain.LaneID

	md           *markdownRenderer
	copyText     func(string) error
	settingsFeed <-chan Settings
	displayName  string
}

// settingsMsg carries one live settings update.
type settingsMsg struct {
	settings Settings
	ok       bool
}

// NewModel constructs the board model.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:           svc,
		ctx:           context.Background(),
		status:        "ready",
		help:          h,
		keys:          newKeyMap(),
		formKeys:      newFormKeyMap(),
		confirmDelete: true,
		md:            &markdownRenderer{},
		copyText:      clipboard.WriteAll,
	}
	m.refreshLanes()
	m.view = svc.View()
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init starts listening for settings updates.
func (m Model) Init() tea.Cmd {
	return m.waitForSettings()
}

// waitForSettings blocks on the settings feed.
func (m Model) waitForSettings() tea.Cmd {
	if m.settingsFeed == nil {
		return nil
	}
	feed := m.settingsFeed
	return func() tea.Msg {
		s, ok := <-feed
		return settingsMsg{settings: s, ok: ok}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(max(0, msg.Width-2))
		return m, nil

	case settingsMsg:
		if !msg.ok {
			return m, nil
		}
		m.applySettings(msg.settings)
		m.status = "settings reloaded"
		return m, m.waitForSettings()

	case tea.KeyPressMsg:
		switch m.mode {
		case modeForm:
			return m.handleFormKey(msg)
		case modeConfirmDelete:
			return m.handleConfirmKey(msg)
		case modeInfo:
			return m.handleInfoKey(msg)
		case modeActivity:
			return m.handleActivityKey(msg)
		default:
			return m.handleBoardKey(msg)
		}

	case tea.MouseClickMsg:
		return m.handleMousePress(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// applySettings updates display settings from configuration.
func (m *Model) applySettings(s Settings) {
	m.confirmDelete = s.ConfirmDelete
	m.laneNames = cloneNames(s.LaneNames)
	m.refreshLanes()
}

// refreshLanes rebuilds the rendered lane list with configured names.
func (m *Model) refreshLanes() {
	m.lanes = m.svc.LaneSet().WithNames(m.laneNames).Lanes()
	m.selLane = clamp(m.selLane, 0, len(m.lanes)-1)
}

// setView stores a fresh service view and keeps the selection in range.
func (m *Model) setView(v app.View) {
	m.view = v
	m.clampSelection()
}

// clampSelection keeps the selected lane and task inside the board.
func (m *Model) clampSelection() {
	m.selLane = clamp(m.selLane, 0, len(m.lanes)-1)
	m.selTask = clamp(m.selTask, 0, len(m.laneTasks(m.selLane))-1)
}

// laneTasks returns the tasks of the lane at idx.
func (m Model) laneTasks(idx int) []domain.Task {
	if idx < 0 || idx >= len(m.lanes) {
		return nil
	}
	return m.view.Board.Tasks(m.lanes[idx].ID)
}

// selectedTask returns the task under the cursor.
func (m Model) selectedTask() (domain.Task, bool) {
	tasks := m.laneTasks(m.selLane)
	if m.selTask < 0 || m.selTask >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.selTask], true
}

// focusTask moves the cursor to the task with id.
func (m *Model) focusTask(id string) {
	for laneIdx := range m.lanes {
		for taskIdx, task := range m.laneTasks(laneIdx) {
			if task.ID == id {
				m.selLane = laneIdx
				m.selTask = taskIdx
				return
			}
		}
	}
	m.clampSelection()
}

// laneIndex returns the rendered index of lane.
func (m Model) laneIndex(lane domain.LaneID) int {
	for idx, l := range m.lanes {
		if l.ID == lane {
			return idx
		}
	}
	return -1
}

// laneName returns the display name of lane.
func (m Model) laneName(lane domain.LaneID) string {
	if idx := m.laneIndex(lane); idx >= 0 {
		return m.lanes[idx].Name
	}
	return string(lane)
}

// layout returns the geometry of the board as currently rendered.
func (m Model) layout() boardLayout {
	return layoutBoard(m.view.Board, m.lanes, m.width, m.height, m.selLane, m.selTask)
}

// handleBoardKey handles keys while no overlay is open.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if m.view.Drag.Active {
		return m.handleDragKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		m.help.ShowAll = false
		return m, nil
	case key.Matches(msg, m.keys.laneLeft):
		m.selLane = clamp(m.selLane-1, 0, len(m.lanes)-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.laneRight):
		m.selLane = clamp(m.selLane+1, 0, len(m.lanes)-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.taskUp):
		m.selTask = max(0, m.selTask-1)
		return m, nil
	case key.Matches(msg, m.keys.taskDown):
		m.selTask = clamp(m.selTask+1, 0, len(m.laneTasks(m.selLane))-1)
		return m, nil
	case key.Matches(msg, m.keys.newTask):
		return m.startCreate()
	case key.Matches(msg, m.keys.editTask):
		return m.startEdit()
	case key.Matches(msg, m.keys.taskInfo):
		task, ok := m.selectedTask()
		if !ok {
			m.status = "no task selected"
			return m, nil
		}
		m.infoTaskID = task.ID
		m.mode = modeInfo
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		return m.startDelete()
	case key.Matches(msg, m.keys.moveLeft):
		return m.moveSelected(-1)
	case key.Matches(msg, m.keys.moveRight):
		return m.moveSelected(1)
	case key.Matches(msg, m.keys.pickDrop):
		return m.pickUp()
	case key.Matches(msg, m.keys.copyTitle):
		return m.copySelectedTitle()
	case key.Matches(msg, m.keys.activity):
		return m.openActivity()
	}
	return m, nil
}

// handleDragKey handles keys while a task is picked up.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.setView(m.svc.CancelDrag())
		m.dragByMouse = false
		m.status = "drag canceled"
	case m.dragByMouse:
		// Mouse drags finish on release; only esc applies.
	case key.Matches(msg, m.keys.laneLeft):
		m.dragTarget = clamp(m.dragTarget-1, 0, len(m.lanes)-1)
	case key.Matches(msg, m.keys.laneRight):
		m.dragTarget = clamp(m.dragTarget+1, 0, len(m.lanes)-1)
	case key.Matches(msg, m.keys.pickDrop):
		drop := drag.Drop{Over: true}
		if m.dragTarget >= 0 && m.dragTarget < len(m.lanes) {
			drop.Lane = m.lanes[m.dragTarget].ID
		}
		return m.finishDrag(drop)
	}
	return m, nil
}

// pickUp starts a keyboard drag of the selected task.
func (m Model) pickUp() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	v, started := m.svc.StartDrag(task.ID)
	m.setView(v)
	if !started {
		m.status = "cannot pick up task"
		return m, nil
	}
	m.dragByMouse = false
	m.dragTarget = m.selLane
	m.status = fmt.Sprintf("moving %q • h/l choose lane • space drop • esc cancel", task.Title)
	return m, nil
}

// finishDrag ends the active drag and reports the outcome.
func (m Model) finishDrag(drop drag.Drop) (tea.Model, tea.Cmd) {
	v, res := m.svc.EndDrag(m.ctx, drop)
	m.setView(v)
	m.dragByMouse = false
	m.hoverLane = ""
	m.status = dragStatus(res, m.laneName(res.To))
	if res.TaskID != "" {
		m.focusTask(res.TaskID)
	}
	return m, nil
}

// dragStatus describes a drag outcome for the status line.
func dragStatus(res drag.Result, target string) string {
	switch res.Outcome {
	case drag.OutcomeMoved:
		return "moved to " + target
	case drag.OutcomeSameLane:
		return "already in " + target
	case drag.OutcomeCanceled:
		return "drag canceled"
	case drag.OutcomeNoTarget:
		return "dropped outside a lane"
	case drag.OutcomeMissing:
		return "task no longer exists"
	case drag.OutcomeRejected:
		return "move rejected"
	default:
		return "nothing to drop"
	}
}

// moveSelected moves the selected task delta lanes.
func (m Model) moveSelected(delta int) (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	target, ok := m.svc.LaneSet().Neighbor(task.Lane, delta)
	if !ok || target == task.Lane {
		return m, nil
	}
	v, err := m.svc.MoveTask(m.ctx, task.ID, target)
	m.setView(v)
	if err != nil {
		m.status = "move failed: " + err.Error()
		return m, nil
	}
	m.focusTask(task.ID)
	m.status = "moved to " + m.laneName(target)
	return m, nil
}

// copySelectedTitle copies the selected task title to the clipboard.
func (m Model) copySelectedTitle() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	return m.copyTitle(task)
}

// copyTitle copies task's title to the clipboard.
func (m Model) copyTitle(task domain.Task) (tea.Model, tea.Cmd) {
	if err := m.copyText(task.Title); err != nil {
		m.status = "copy failed: " + err.Error()
		return m, nil
	}
	m.status = "copied title"
	return m, nil
}

// openActivity loads recent changes into the activity overlay.
func (m Model) openActivity() (tea.Model, tea.Cmd) {
	events, err := m.svc.RecentActivity(m.ctx, activityLimit)
	if err != nil {
		m.status = "activity unavailable: " + err.Error()
		return m, nil
	}
	m.activity = events
	m.mode = modeActivity
	return m, nil
}

// startCreate opens the form for a new task in the selected lane.
func (m Model) startCreate() (tea.Model, tea.Cmd) {
	v := m.svc.OpenCreate()
	if m.selLane < len(m.lanes) {
		v.Fields.Lane = m.lanes[m.selLane].ID
		if next, err := m.svc.UpdateFields(v.Fields); err == nil {
			v = next
		}
	}
	return m.openForm(v, "new task")
}

// startEdit opens the form for the selected task.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	v, err := m.svc.OpenEdit(task.ID)
	if err != nil {
		m.setView(v)
		m.status = "edit failed: " + err.Error()
		return m, nil
	}
	return m.openForm(v, "edit task")
}

// openForm shows the form for the coordinator state in v.
func (m Model) openForm(v app.View, status string) (tea.Model, tea.Cmd) {
	m.setView(v)
	m.editor = newFormEditor(v)
	m.mode = modeForm
	m.status = status
	return m, m.editor.focusField(fieldTitle)
}

// startDelete asks to delete the selected task.
func (m Model) startDelete() (tea.Model, tea.Cmd) {
	task, ok := m.selectedTask()
	if !ok {
		m.status = "no task selected"
		return m, nil
	}
	v, err := m.svc.OpenEdit(task.ID)
	m.setView(v)
	if err != nil {
		m.status = "delete failed: " + err.Error()
		return m, nil
	}
	return m.requestDelete(modeBoard)
}

// requestDelete deletes the active task, confirming first when configured.
func (m Model) requestDelete(back inputMode) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		m.confirmBack = back
		m.mode = modeConfirmDelete
		return m, nil
	}
	return m.deleteActive()
}

// deleteActive deletes the task open in the coordinator.
func (m Model) deleteActive() (tea.Model, tea.Cmd) {
	title := m.activeTitle()
	v, err := m.svc.DeleteActive(m.ctx)
	m.setView(v)
	m.mode = modeBoard
	if err != nil {
		m.status = "delete failed: " + err.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("deleted %q", title)
	return m, nil
}

// activeTitle returns the title of the task open in the coordinator.
func (m Model) activeTitle() string {
	if task, ok := m.view.Board.Find(m.view.Selection.ActiveTaskID); ok {
		return task.Title
	}
	return m.view.Fields.Title
}

// handleConfirmKey handles the delete confirmation prompt.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m.deleteActive()
	case "n", "N", "esc", "q":
		if m.confirmBack == modeForm {
			m.mode = modeForm
			m.status = "delete canceled"
			return m, nil
		}
		m.setView(m.svc.CloseForm())
		m.mode = modeBoard
		m.status = "delete canceled"
	}
	return m, nil
}

// handleInfoKey handles the task info panel.
func (m Model) handleInfoKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	task, ok := m.view.Board.Find(m.infoTaskID)
	if !ok {
		m.mode = modeBoard
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.editTask):
		m.focusTask(task.ID)
		m.mode = modeBoard
		return m.startEdit()
	case key.Matches(msg, m.keys.copyTitle):
		return m.copyTitle(task)
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.taskInfo), key.Matches(msg, m.keys.quit):
		m.mode = modeBoard
	}
	return m, nil
}

// handleActivityKey handles the activity overlay.
func (m Model) handleActivityKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel, m.keys.activity, m.keys.quit) {
		m.mode = modeBoard
	}
	return m, nil
}

// handleFormKey handles keys while the task form is open.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.formKeys.cancel):
		m.setView(m.svc.CloseForm())
		m.mode = modeBoard
		m.status = "form closed"
		return m, nil
	case key.Matches(msg, m.formKeys.commit):
		return m.submitForm()
	case key.Matches(msg, m.formKeys.submit):
		if m.editor.onLastField() {
			return m.submitForm()
		}
		return m, m.editor.focusField(m.editor.focus + 1)
	case key.Matches(msg, m.formKeys.nextField):
		return m, m.editor.focusField(m.editor.focus + 1)
	case key.Matches(msg, m.formKeys.prevField):
		return m, m.editor.focusField(m.editor.focus - 1)
	case key.Matches(msg, m.formKeys.laneLeft):
		return m.shiftFormLane(-1)
	case key.Matches(msg, m.formKeys.laneRight):
		return m.shiftFormLane(1)
	case key.Matches(msg, m.formKeys.addSubtask):
		m.syncFields()
		v := m.svc.AddSubtask()
		m.setView(v)
		m.editor.setSubtasks(v.Fields.Subtasks)
		return m, m.editor.focusField(m.editor.fieldCount() - 1)
	case key.Matches(msg, m.formKeys.removeSubtask):
		idx, ok := m.editor.focusedSubtask()
		if !ok {
			m.status = "focus a subtask to remove it"
			return m, nil
		}
		m.syncFields()
		v := m.svc.RemoveSubtask(idx)
		m.setView(v)
		m.editor.setSubtasks(v.Fields.Subtasks)
		return m, m.editor.focusField(m.editor.focus)
	case key.Matches(msg, m.formKeys.deleteTask):
		if !m.editor.editMode {
			m.status = "nothing to delete yet"
			return m, nil
		}
		m.syncFields()
		return m.requestDelete(modeForm)
	}

	cmd := m.editor.update(msg)
	m.syncFields()
	return m, cmd
}

// shiftFormLane changes the form's target lane.
func (m Model) shiftFormLane(delta int) (tea.Model, tea.Cmd) {
	lanes := m.svc.LaneSet()
	current := m.editor.lane
	if !lanes.Has(current) {
		current = lanes.Default()
	}
	if next, ok := lanes.Neighbor(current, delta); ok {
		m.editor.lane = next
	}
	m.syncFields()
	return m, nil
}

// syncFields pushes the editor values into the coordinator.
func (m *Model) syncFields() {
	v, err := m.svc.UpdateFields(m.editor.fields())
	m.setView(v)
	if err != nil && !errors.Is(err, form.ErrFormClosed) {
		m.status = err.Error()
	}
}

// submitForm commits the form.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	v, task, err := m.svc.Commit(m.ctx, m.editor.fields())
	m.setView(v)
	if err != nil {
		m.status = "save failed: " + commitError(err)
		return m, nil
	}
	m.mode = modeBoard
	m.focusTask(task.ID)
	m.status = fmt.Sprintf("saved %q", task.Title)
	return m, nil
}

// commitError phrases a commit failure for the status line.
func commitError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTitle):
		return "title is required"
	case errors.Is(err, domain.ErrUnknownLane):
		return "unknown lane"
	default:
		return err.Error()
	}
}

// mousePoint converts a bubbletea mouse position.
func mousePoint(mouse tea.Mouse) drag.Point {
	return drag.Point{X: mouse.X, Y: mouse.Y}
}

// handleMousePress selects the card under the pointer and starts dragging it.
func (m Model) handleMousePress(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	if m.mode != modeBoard || m.help.ShowAll || mouse.Button != tea.MouseLeft || m.view.Drag.Active {
		return m, nil
	}
	p := mousePoint(mouse)
	layout := m.layout()
	if lane, ok := layout.laneAt(p); ok {
		m.selLane = m.laneIndex(lane.lane)
		m.clampSelection()
	}
	taskID, _, ok := layout.taskAt(p)
	if !ok {
		return m, nil
	}
	m.focusTask(taskID)
	v, started := m.svc.StartDrag(taskID)
	m.setView(v)
	if started {
		m.dragByMouse = true
		m.hoverLane = ""
	}
	return m, nil
}

// handleMouseMotion tracks the lane under a dragged card.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.dragByMouse || !m.view.Drag.Active {
		return m, nil
	}
	m.hoverLane = ""
	if el, ok := m.layout().HitTest(mousePoint(msg.Mouse())); ok {
		if lane, ok := drag.ResolveLane(el); ok {
			m.hoverLane = lane
		}
	}
	return m, nil
}

// handleMouseRelease drops a mouse-dragged card at the pointer.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.dragByMouse || !m.view.Drag.Active {
		return m, nil
	}
	p := mousePoint(msg.Mouse())
	layout := m.layout()
	m.svc.SetHitTester(layout)
	over := p.X >= 0 && p.Y >= 0 && (m.width <= 0 || p.X < m.width) && (m.height <= 0 || p.Y < m.height)
	return m.finishDrag(drag.Drop{Over: over, Point: p})
}

// handleMouseWheel scrolls the selection in the lane under the cursor.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeBoard || m.help.ShowAll {
		return m, nil
	}
	switch msg.Mouse().Button {
	case tea.MouseWheelUp:
		m.selTask = max(0, m.selTask-1)
	case tea.MouseWheelDown:
		m.selTask = clamp(m.selTask+1, 0, len(m.laneTasks(m.selLane))-1)
	}
	return m, nil
}

// clamp bounds v to [minV, maxV], preferring minV when the range is empty.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// truncate shortens s to limit runes with an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return string(rs[:1])
	}
	return strings.TrimRightFunc(string(rs[:limit-1]), func(r rune) bool { return r == ' ' }) + "…"
}

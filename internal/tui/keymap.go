package tui

import "charm.land/bubbles/v2/key"

// keyMap holds the board bindings shown in the help bar.
type keyMap struct {
	quit       key.Binding
	toggleHelp key.Binding
	laneLeft   key.Binding
	laneRight  key.Binding
	taskUp     key.Binding
	taskDown   key.Binding
	newTask    key.Binding
	editTask   key.Binding
	taskInfo   key.Binding
	deleteTask key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	pickDrop   key.Binding
	cancel     key.Binding
	copyTitle  key.Binding
	activity   key.Binding
}

// formKeyMap holds bindings that only apply while the task form is open.
type formKeyMap struct {
	nextField     key.Binding
	prevField     key.Binding
	laneLeft      key.Binding
	laneRight     key.Binding
	addSubtask    key.Binding
	removeSubtask key.Binding
	commit        key.Binding
	submit        key.Binding
	deleteTask    key.Binding
	cancel        key.Binding
}

// newKeyMap constructs the board key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		laneLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "lane left")),
		laneRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "lane right")),
		taskUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		taskDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		newTask:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		editTask:   key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e/enter", "edit task")),
		taskInfo:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task info")),
		deleteTask: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
		moveLeft:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveRight:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		pickDrop:   key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "pick up / drop")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		copyTitle:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy title")),
		activity:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "activity")),
	}
}

// newFormKeyMap constructs the task form key map.
func newFormKeyMap() formKeyMap {
	return formKeyMap{
		nextField:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prevField:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		laneLeft:      key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("ctrl+h", "lane left")),
		laneRight:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "lane right")),
		addSubtask:    key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "add subtask")),
		removeSubtask: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "remove subtask")),
		commit:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		submit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next / save")),
		deleteTask:    key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
		cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp returns the bindings shown in the collapsed help bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.newTask, k.editTask, k.pickDrop, k.deleteTask, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every board binding grouped by concern.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.laneLeft, k.laneRight, k.taskUp, k.taskDown},
		{k.newTask, k.editTask, k.taskInfo, k.deleteTask, k.copyTitle},
		{k.moveLeft, k.moveRight, k.pickDrop, k.cancel},
		{k.activity, k.toggleHelp, k.quit},
	}
}

// ShortHelp returns the form bindings for the form footer.
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextField, k.laneLeft, k.laneRight, k.addSubtask, k.removeSubtask, k.commit, k.cancel,
	}
}

// FullHelp returns the form bindings in one group.
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

package domain

import "strings"

// Task represents a single checklist item.
type Task struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Checklist is the ordered task list of a session. Ids come from a counter
// that only moves forward, so deleting a task never frees its id.
type Checklist struct {
	Tasks  []Task `json:"tasks"`
	NextID int    `json:"nextId"`
}

// NewChecklist wraps tasks loaded from storage and seeds the id counter past
// the highest id already in use.
func NewChecklist(tasks []Task) Checklist {
	next := 0
	for _, t := range tasks {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return Checklist{Tasks: tasks, NextID: next}
}

// Add appends a new open task. Blank text is ignored.
func (c *Checklist) Add(text string) (Task, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, false
	}
	t := Task{ID: c.NextID, Text: text}
	c.NextID++
	c.Tasks = append(c.Tasks, t)
	return t, true
}

func (c *Checklist) indexOf(id int) int {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// SetCompleted updates the completed flag and reports whether it changed.
func (c *Checklist) SetCompleted(id int, completed bool) bool {
	i := c.indexOf(id)
	if i < 0 || c.Tasks[i].Completed == completed {
		return false
	}
	c.Tasks[i].Completed = completed
	return true
}

// Toggle flips the completed flag of the task with the given id.
func (c *Checklist) Toggle(id int) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.Tasks[i].Completed = !c.Tasks[i].Completed
	return true
}

// Delete removes the task with the given id.
func (c *Checklist) Delete(id int) bool {
	return c.RemoveAt(c.indexOf(id))
}

// RemoveAt removes the task at position i.
func (c *Checklist) RemoveAt(i int) bool {
	if i < 0 || i >= len(c.Tasks) {
		return false
	}
	c.Tasks = append(c.Tasks[:i], c.Tasks[i+1:]...)
	return true
}

// Stats returns the completed count, the total and the completion rate in
// whole percent.
func (c Checklist) Stats() (completed, total, rate int) {
	total = len(c.Tasks)
	for _, t := range c.Tasks {
		if t.Completed {
			completed++
		}
	}
	if total > 0 {
		rate = completed * 100 / total
	}
	return completed, total, rate
}

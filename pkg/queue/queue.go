package queue

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// ErrNotFound is returned for unknown work task ids
var ErrNotFound = errors.New("work task not found")

// Queue provides in-memory work task queue operations with priority support.
// Tasks are returned as copies so callers never share state with the queue.
type Queue struct {
	mu        sync.RWMutex
	pq        *PriorityQueue
	workTasks map[string]*models.WorkTask
	seq       uint64
	now       func() time.Time
}

// NewQueue creates a new in-memory queue instance
func NewQueue() *Queue {
	pq := make(PriorityQueue, 0)
	heap.Init(&pq)

	return &Queue{
		pq:        &pq,
		workTasks: make(map[string]*models.WorkTask),
		now:       time.Now,
	}
}

// Enqueue adds a work task to the queue. Higher priority tasks are dequeued
// first; equal priorities keep submission order.
func (q *Queue) Enqueue(task *models.WorkTask) error {
	if task.ID == "" {
		return fmt.Errorf("work task has no id")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.workTasks[task.ID]; exists {
		return fmt.Errorf("work task already queued: %s", task.ID)
	}

	stored := *task
	if stored.Status == "" {
		stored.Status = models.WorkTaskStatusQueued
	}
	if stored.SubmittedAt.IsZero() {
		stored.SubmittedAt = q.now()
	}

	q.seq++
	heap.Push(q.pq, &PriorityQueueItem{
		TaskID:   stored.ID,
		Priority: stored.Priority,
		seq:      q.seq,
	})
	q.workTasks[stored.ID] = &stored

	return nil
}

// Dequeue retrieves the next queued work task, or nil when none is waiting.
// Cancelled tasks still in the heap are skipped.
func (q *Queue) Dequeue() (*models.WorkTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pq.Len() > 0 {
		item := heap.Pop(q.pq).(*PriorityQueueItem)

		task, ok := q.workTasks[item.TaskID]
		if !ok {
			return nil, fmt.Errorf("work task data not found: %s", item.TaskID)
		}
		if task.Status != models.WorkTaskStatusQueued {
			continue
		}

		// Kept in workTasks for status tracking
		out := *task
		return &out, nil
	}
	return nil, nil
}

// GetWorkTask retrieves a work task by ID
func (q *Queue) GetWorkTask(taskID string) (*models.WorkTask, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	task, ok := q.workTasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}

	out := *task
	return &out, nil
}

// ListWorkTasks returns every known task, newest submission first
func (q *Queue) ListWorkTasks() []*models.WorkTask {
	q.mu.RLock()
	defer q.mu.RUnlock()

	tasks := make([]*models.WorkTask, 0, len(q.workTasks))
	for _, task := range q.workTasks {
		out := *task
		tasks = append(tasks, &out)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].SubmittedAt.Equal(tasks[j].SubmittedAt) {
			return tasks[i].SubmittedAt.After(tasks[j].SubmittedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// UpdateWorkTaskStatus updates the status of a work task
func (q *Queue) UpdateWorkTaskStatus(taskID string, status models.WorkTaskStatus, errorMsg string) error {
	return q.UpdateWorkTask(taskID, func(task *models.WorkTask) {
		task.Status = status
		if errorMsg != "" {
			task.ErrorMessage = errorMsg
		}

		now := q.now()
		switch status {
		case models.WorkTaskStatusExecuting:
			task.StartedAt = &now
		case models.WorkTaskStatusCompleted, models.WorkTaskStatusFailed, models.WorkTaskStatusCancelled:
			task.CompletedAt = &now
		}
	})
}

// UpdateWorkTask applies fn to the stored task under the queue lock
func (q *Queue) UpdateWorkTask(taskID string, fn func(*models.WorkTask)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.workTasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	fn(task)
	return nil
}

// Cancel marks a queued task as cancelled. Tasks already picked up cannot be cancelled.
func (q *Queue) Cancel(taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.workTasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	if task.Status != models.WorkTaskStatusQueued {
		return fmt.Errorf("work task %s is %s", taskID, task.Status)
	}
	now := q.now()
	task.Status = models.WorkTaskStatusCancelled
	task.CompletedAt = &now
	return nil
}

// QueueLength returns the number of tasks waiting to be dequeued
func (q *Queue) QueueLength() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, item := range *q.pq {
		if q.workTasks[item.TaskID].Status == models.WorkTaskStatusQueued {
			n++
		}
	}
	return n
}

// PriorityQueueItem represents an item in the priority queue
type PriorityQueueItem struct {
	TaskID   string
	Priority int    // Higher value = dequeued first
	seq      uint64 // Submission order, breaks ties
	index    int    // Index in heap
}

// PriorityQueue implements heap.Interface
type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*pq = old[0 : n-1]
	return item
}

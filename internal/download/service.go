package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mediagrab/media-downloader/internal/cancel"
	"github.com/mediagrab/media-downloader/internal/history"
	"github.com/mediagrab/media-downloader/internal/model"
	"github.com/mediagrab/media-downloader/internal/platform"
)

// TaskState is the observable state of one queued task.
type TaskState struct {
	Task       *model.Task
	Status     model.TaskStatus
	Percent    int
	Speed      string
	ETA        string
	Message    string
	OutputPath string
}

// Service owns the task queue. Downloads run strictly one at a time; a
// playlist task expands into per-item tasks placed at the front of the queue
// so the playlist finishes before unrelated work starts.
type Service struct {
	engine     *Engine
	infos      InfoSource
	history    *history.Store
	controller *cancel.Controller

	mu       sync.RWMutex
	states   map[string]*TaskState
	queue    []string
	activeID string
	onUpdate func(TaskState)

	wake chan struct{}
	stop chan struct{}
	once sync.Once
}

// NewService returns a stopped service; call Start to begin processing.
func NewService(engine *Engine, infos InfoSource, hist *history.Store, controller *cancel.Controller) *Service {
	return &Service{
		engine:     engine,
		infos:      infos,
		history:    hist,
		controller: controller,
		states:     make(map[string]*TaskState),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

// SetOnUpdate installs the state-change callback. The callback receives a
// snapshot and may be invoked from the worker goroutine.
func (s *Service) SetOnUpdate(fn func(TaskState)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Start launches the queue worker.
func (s *Service) Start() {
	s.once.Do(func() {
		go s.worker()
	})
}

// Stop shuts the worker down after the current task finishes.
func (s *Service) Stop() {
	close(s.stop)
}

// Enqueue adds a task to the back of the queue and returns its id.
func (s *Service) Enqueue(task *model.Task) string {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.states[task.ID] = &TaskState{Task: task, Status: model.TaskStatusCreated, Percent: -1}
	s.queue = append(s.queue, task.ID)
	s.mu.Unlock()

	s.notify(task.ID)
	s.kick()
	return task.ID
}

// Cancel aborts one task. A queued task is simply removed; the active task
// gets the controller's full cancellation treatment.
func (s *Service) Cancel(taskID string) {
	s.mu.Lock()
	if s.activeID == taskID {
		s.mu.Unlock()
		s.controller.Cancel()
		return
	}
	for i, id := range s.queue {
		if id == taskID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	if state, ok := s.states[taskID]; ok && !state.Status.IsTerminal() {
		state.Status = model.TaskStatusCancelled
	}
	s.mu.Unlock()
	s.notify(taskID)
}

// CancelAll empties the queue and aborts the active task.
func (s *Service) CancelAll() {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	for _, id := range pending {
		if state, ok := s.states[id]; ok && !state.Status.IsTerminal() {
			state.Status = model.TaskStatusCancelled
		}
	}
	s.mu.Unlock()

	for _, id := range pending {
		s.notify(id)
	}
	s.controller.Cancel()
}

// Task returns a snapshot of one task's state.
func (s *Service) Task(taskID string) (TaskState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[taskID]
	if !ok {
		return TaskState{}, false
	}
	return *state, true
}

// Tasks returns snapshots of every known task.
func (s *Service) Tasks() []TaskState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, *state)
	}
	return out
}

func (s *Service) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) worker() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}
		for {
			select {
			case <-s.stop:
				return
			default:
			}
			id, ok := s.pop()
			if !ok {
				break
			}
			s.runTask(id)
		}
	}
}

func (s *Service) pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", false
	}
	id := s.queue[0]
	s.queue = s.queue[1:]
	return id, true
}

func (s *Service) runTask(taskID string) {
	s.mu.Lock()
	state, ok := s.states[taskID]
	if !ok || state.Status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	task := state.Task
	s.mu.Unlock()

	if task.IsPlaylist {
		s.expandPlaylist(taskID, task)
		return
	}

	s.controller.Reset()
	ctx, cancelFn := s.controller.WithContext(context.Background())
	defer cancelFn()

	s.mu.Lock()
	s.activeID = taskID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.activeID = ""
		s.mu.Unlock()
	}()

	rec, err := s.engine.Run(ctx, task, Events{
		Status: func(status model.TaskStatus) {
			s.update(taskID, func(st *TaskState) { st.Status = status })
		},
		Progress: func(p model.Progress) {
			s.update(taskID, func(st *TaskState) {
				if p.Percent >= 0 {
					st.Percent = p.Percent
				}
				if p.Speed != "" {
					st.Speed = p.Speed
				}
				st.ETA = p.ETAString()
				if p.Message != "" {
					st.Message = p.Message
				}
				if p.Path != "" {
					st.OutputPath = p.Path
				}
			})
		},
	})

	switch {
	case err == nil:
		if appendErr := s.history.Append(*rec); appendErr != nil {
			log.Printf("Failed to record history for %s: %v", taskID, appendErr)
		}
		s.update(taskID, func(st *TaskState) {
			st.Status = model.TaskStatusSuccess
			st.Percent = 100
			st.OutputPath = rec.Path
		})
	case errors.Is(err, context.Canceled), errors.Is(err, cancel.ErrCancelled), s.controller.Cancelled():
		s.update(taskID, func(st *TaskState) { st.Status = model.TaskStatusCancelled })
	default:
		te := model.Classify(err)
		log.Printf("Task %s failed (%s): %v", taskID, te.Kind, err)
		s.update(taskID, func(st *TaskState) {
			st.Status = model.TaskStatusFailed
			st.Message = te.DisplayMessage()
		})
	}
}

// expandPlaylist resolves the playlist and queues one task per selected
// item at the front of the queue. A bad item expression silently falls back
// to the whole playlist; only a failed fetch fails the task.
func (s *Service) expandPlaylist(taskID string, task *model.Task) {
	s.controller.Reset()
	ctx, cancelFn := s.controller.WithContext(context.Background())
	defer cancelFn()

	s.update(taskID, func(st *TaskState) { st.Status = model.TaskStatusPeeking })

	rec, err := s.infos.FetchPlaylist(ctx, task.EffectiveURL(), nil)
	if err != nil {
		if s.controller.Cancelled() {
			s.update(taskID, func(st *TaskState) { st.Status = model.TaskStatusCancelled })
			return
		}
		te := model.Classify(err)
		s.update(taskID, func(st *TaskState) {
			st.Status = model.TaskStatusFailed
			st.Message = te.DisplayMessage()
		})
		return
	}
	if len(rec.Entries) == 0 {
		s.update(taskID, func(st *TaskState) {
			st.Status = model.TaskStatusFailed
			st.Message = "playlist has no entries"
		})
		return
	}

	indices := platform.ParsePlaylistItems(task.PlaylistItems, len(rec.Entries))
	children := make([]string, 0, len(indices))
	s.mu.Lock()
	for _, idx := range indices {
		entry := rec.Entries[idx-1]
		child := *task
		child.ID = uuid.NewString()
		child.URL = entry.URL
		child.DisplayTitle = entry.Title
		child.IsPlaylist = false
		child.PlaylistItems = ""
		s.states[child.ID] = &TaskState{Task: &child, Status: model.TaskStatusCreated, Percent: -1}
		children = append(children, child.ID)
	}
	// Playlist items run before anything queued after the playlist itself.
	s.queue = append(children, s.queue...)
	s.mu.Unlock()

	for _, id := range children {
		s.notify(id)
	}
	s.update(taskID, func(st *TaskState) {
		st.Status = model.TaskStatusSuccess
		st.Message = fmt.Sprintf("expanded into %d items", len(children))
	})
	s.kick()
}

func (s *Service) update(taskID string, mutate func(*TaskState)) {
	s.mu.Lock()
	state, ok := s.states[taskID]
	if ok {
		mutate(state)
	}
	s.mu.Unlock()
	if ok {
		s.notify(taskID)
	}
}

func (s *Service) notify(taskID string) {
	s.mu.RLock()
	fn := s.onUpdate
	state, ok := s.states[taskID]
	var snapshot TaskState
	if ok {
		snapshot = *state
	}
	s.mu.RUnlock()
	if fn != nil && ok {
		fn(snapshot)
	}
}

// internal/app/operator_service.go
package app

import "pacer_agent/internal/domain/notification"

// OperatorService backs the operator's chat commands.
type OperatorService struct {
	control    RunController
	queue      *notification.Queue
	operatorID int64
}

func NewOperatorService(control RunController, queue *notification.Queue, operatorID int64) *OperatorService {
	return &OperatorService{
		control:    control,
		queue:      queue,
		operatorID: operatorID,
	}
}

func (s *OperatorService) Status(performingUserID int64) (RunStatus, error) {
	if performingUserID != s.operatorID {
		return RunStatus{}, ErrNotAuthorized
	}
	return s.control.Status(), nil
}

// Pause stops action decisions; chain polling keeps running.
func (s *OperatorService) Pause(performingUserID int64) error {
	if performingUserID != s.operatorID {
		return ErrNotAuthorized
	}
	if !s.control.Pause() {
		return ErrAlreadyPaused
	}
	return nil
}

func (s *OperatorService) Resume(performingUserID int64) error {
	if performingUserID != s.operatorID {
		return ErrNotAuthorized
	}
	if !s.control.Resume() {
		return ErrNotPaused
	}
	return nil
}

// QueuedNotifications lists what the next action would react to.
func (s *OperatorService) QueuedNotifications(performingUserID int64) ([]notification.Item, error) {
	if performingUserID != s.operatorID {
		return nil, ErrNotAuthorized
	}
	return s.queue.Drain(), nil
}

package errors

import "fmt"

var (
	ErrAuthorizationDenied = fmt.Errorf("authorization denied")
	ErrProvisionFailed     = fmt.Errorf("resource provisioning failed")
	ErrStaleSession        = fmt.Errorf("party no longer exists")
	ErrCapacityExceeded    = fmt.Errorf("party is full")
	ErrPartyExists         = fmt.Errorf("party already registered for this channel")
	ErrFlowInProgress      = fmt.Errorf("leader already has a pending setup flow")
	ErrNotLeader           = fmt.Errorf("only the party leader may do this")
	ErrNotInChannel        = fmt.Errorf("actor is not in the party voice channel")
	ErrSetupIncomplete     = fmt.Errorf("setup selection is incomplete")
	ErrAlreadyAssigned     = fmt.Errorf("actor already holds the requested role")
	ErrInvalidNickname     = fmt.Errorf("nickname does not match the required format")
	ErrMissingTag          = fmt.Errorf("game identifier is missing its tag separator")
	ErrRoleNotFound        = fmt.Errorf("role is not part of the play-time set")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)

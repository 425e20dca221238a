package domain

import "errors"

var (
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidTitle        = errors.New("invalid title")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidScenarioType = errors.New("invalid scenario type")
	ErrInvalidActorKind    = errors.New("invalid actor kind")
	ErrInvalidSystemType   = errors.New("invalid system type")
	ErrInvalidStep         = errors.New("invalid step")
	ErrInvalidStepOrder    = errors.New("invalid step order")
	ErrInvalidRelation     = errors.New("invalid relationship kind")
	ErrInvalidTargetType   = errors.New("invalid reference target type")
	ErrInvalidCondition    = errors.New("invalid condition")
)

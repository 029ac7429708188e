package function

import (
	"context"
	"reflect"

	"github.com/on-the-ground/calcgraph_go/engine/result"
)

type invalidInput struct{ message string }

type permissionDenied struct{ message string }

// InvalidInput returns a function that always fails with StatusInvalidInput.
// It stands in for cells whose input type has no configured function.
func InvalidInput(message string) Function {
	receiver := invalidInput{message: message}
	return New(
		"invalidInput",
		reflect.TypeFor[Function](),
		reflect.TypeOf(receiver),
		func(context.Context, Environment, any, Arguments) (any, error) {
			return result.FailureOf(result.StatusInvalidInput, "%s", receiver.message), nil
		},
		NonCacheable(),
	)
}

// PermissionDenied returns a function that always fails with StatusPermissionDenied.
func PermissionDenied(message string) Function {
	receiver := permissionDenied{message: message}
	return New(
		"permissionDenied",
		reflect.TypeFor[Function](),
		reflect.TypeOf(receiver),
		func(context.Context, Environment, any, Arguments) (any, error) {
			return result.FailureOf(result.StatusPermissionDenied, "%s", receiver.message), nil
		},
		NonCacheable(),
	)
}

package delegation

import "fmt"

// Kind tags which half of a Result is populated.
type Kind int

const (
	KindDelegation Kind = iota + 1
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDelegation:
		return "delegation"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of one classification. For KindDelegation,
// FunctionName and Args are set. For KindError, Message is set.
type Result struct {
	Kind         Kind
	FunctionName string
	Args         map[string]any
	Message      string
}

// Delegated returns a delegation result.
func Delegated(functionName string, args map[string]any) Result {
	if args == nil {
		args = map[string]any{}
	}
	return Result{Kind: KindDelegation, FunctionName: functionName, Args: args}
}

// Failed returns an error result.
func Failed(message string) Result {
	return Result{Kind: KindError, Message: message}
}

// IsDelegation reports whether the coordinator chose a function.
func (r Result) IsDelegation() bool {
	return r.Kind == KindDelegation
}

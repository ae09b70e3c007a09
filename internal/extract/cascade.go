package extract

import "context"

// Strategy is one way of producing a field. Run reports false when it found
// nothing usable.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context, in *Input) (T, bool)
}

// Cascade is an ordered list of strategies for one field.
type Cascade[T any] []Strategy[T]

// Resolve runs the strategies in order and returns the first result along with
// the name of the strategy that produced it. When every strategy comes up empty
// it returns fallback and an empty name.
func (c Cascade[T]) Resolve(ctx context.Context, in *Input, fallback T) (T, string) {
	for _, s := range c {
		if ctx.Err() != nil {
			break
		}
		if v, ok := s.Run(ctx, in); ok {
			return v, s.Name
		}
	}
	return fallback, ""
}

// textStrategy adapts a context-free function into a Strategy.
func textStrategy[T any](name string, fn func(in *Input) (T, bool)) Strategy[T] {
	return Strategy[T]{
		Name: name,
		Run: func(_ context.Context, in *Input) (T, bool) {
			return fn(in)
		},
	}
}

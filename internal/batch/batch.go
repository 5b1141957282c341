// Package batch holds the chunking and best-effort mapping helpers used by
// every per-item stage of a screening run.
package batch

// Chunk splits items into consecutive groups of at most size elements.
// A non-positive size yields a single group.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Failure pairs an item with the error it produced.
type Failure[T any] struct {
	Item T
	Err  error
}

// Outcome collects the results of a best-effort Map.
type Outcome[T, R any] struct {
	Successes []R
	Failures  []Failure[T]
}

// Map applies fn to every item. Errors never stop the walk; they are kept
// in Failures in input order.
func Map[T, R any](items []T, fn func(T) (R, error)) Outcome[T, R] {
	var out Outcome[T, R]
	for _, item := range items {
		r, err := fn(item)
		if err != nil {
			out.Failures = append(out.Failures, Failure[T]{Item: item, Err: err})
			continue
		}
		out.Successes = append(out.Successes, r)
	}
	return out
}

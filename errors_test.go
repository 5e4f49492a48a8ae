package quarry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.NotFoundError{Model: "User"}
		assert.Equal(t, "quarry: User not found", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := &quarry.NotFoundError{Model: "Post"}
		assert.True(t, errors.Is(err, quarry.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := &quarry.NotFoundError{Model: "Comment"}
		assert.True(t, quarry.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, quarry.IsNotFound(quarry.ErrNotFound))

		// Non-matching error
		assert.False(t, quarry.IsNotFound(errors.New("other error")))
		assert.False(t, quarry.IsNotFound(nil))
	})
}

func TestUnknownFieldError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.UnknownFieldError{Model: "User", Field: "nickname"}
		assert.Equal(t, `quarry: unknown field "nickname" on model "User"`, err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := &quarry.UnknownFieldError{Model: "User", Field: "nickname"}
		assert.True(t, errors.Is(err, quarry.ErrUnknownField))
		assert.False(t, errors.Is(err, quarry.ErrUnknownRelation))
	})

	t.Run("IsUnknownField", func(t *testing.T) {
		err := &quarry.UnknownFieldError{Model: "User", Field: "nickname"}
		assert.True(t, quarry.IsUnknownField(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsUnknownField(wrapped))

		assert.False(t, quarry.IsUnknownField(errors.New("other error")))
		assert.False(t, quarry.IsUnknownField(nil))
	})
}

func TestUnknownRelationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.UnknownRelationError{Model: "User", Relation: "friends"}
		assert.Equal(t, `quarry: unknown relation "friends" on model "User"`, err.Error())
	})

	t.Run("IsUnknownRelation", func(t *testing.T) {
		err := &quarry.UnknownRelationError{Model: "User", Relation: "friends"}
		assert.True(t, quarry.IsUnknownRelation(err))
		assert.True(t, errors.Is(err, quarry.ErrUnknownRelation))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsUnknownRelation(wrapped))

		assert.False(t, quarry.IsUnknownRelation(errors.New("other error")))
		assert.False(t, quarry.IsUnknownRelation(nil))
	})
}

func TestUnsupportedOperatorError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.UnsupportedOperatorError{Model: "User", Field: "active", Operator: "contains", Value: true}
		assert.Equal(t, `quarry: operator "contains" is not supported for field "active" on model "User" (value bool)`, err.Error())
	})

	t.Run("IsUnsupportedOperator", func(t *testing.T) {
		err := &quarry.UnsupportedOperatorError{Model: "User", Field: "active", Operator: "gt"}
		assert.True(t, quarry.IsUnsupportedOperator(err))
		assert.True(t, errors.Is(err, quarry.ErrUnsupportedOperator))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsUnsupportedOperator(wrapped))

		assert.False(t, quarry.IsUnsupportedOperator(errors.New("other error")))
		assert.False(t, quarry.IsUnsupportedOperator(nil))
	})
}

func TestInvalidGroupByError(t *testing.T) {
	t.Run("ErrorWithField", func(t *testing.T) {
		err := &quarry.InvalidGroupByError{Model: "Post", Field: "title", Reason: "is not grouped"}
		assert.Equal(t, `quarry: invalid groupBy on model "Post": field "title" is not grouped`, err.Error())
	})

	t.Run("ErrorWithoutField", func(t *testing.T) {
		err := &quarry.InvalidGroupByError{Model: "Post", Reason: "by must name at least one field"}
		assert.Equal(t, `quarry: invalid groupBy on model "Post": by must name at least one field`, err.Error())
	})

	t.Run("IsInvalidGroupBy", func(t *testing.T) {
		err := &quarry.InvalidGroupByError{Model: "Post", Reason: "empty"}
		assert.True(t, quarry.IsInvalidGroupBy(err))
		assert.True(t, errors.Is(err, quarry.ErrInvalidGroupBy))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsInvalidGroupBy(wrapped))

		assert.False(t, quarry.IsInvalidGroupBy(errors.New("other error")))
		assert.False(t, quarry.IsInvalidGroupBy(nil))
	})
}

func TestUnsupportedOperationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.UnsupportedOperationError{Dialect: "mysql", Operation: "createMany", Reason: "skipDuplicates is not supported"}
		assert.Equal(t, `quarry: createMany is not supported on dialect "mysql": skipDuplicates is not supported`, err.Error())
	})

	t.Run("IsUnsupportedOperation", func(t *testing.T) {
		err := &quarry.UnsupportedOperationError{Dialect: "mysql", Operation: "createMany"}
		assert.True(t, quarry.IsUnsupportedOperation(err))
		assert.True(t, errors.Is(err, quarry.ErrUnsupportedOperation))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsUnsupportedOperation(wrapped))

		assert.False(t, quarry.IsUnsupportedOperation(errors.New("other error")))
		assert.False(t, quarry.IsUnsupportedOperation(nil))
	})
}

func TestInvalidArgumentError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &quarry.InvalidArgumentError{Model: "User", Operation: "findUnique", Reason: "where must match a unique constraint"}
		assert.Equal(t, `quarry: findUnique on model "User": where must match a unique constraint`, err.Error())
	})

	t.Run("IsInvalidArgument", func(t *testing.T) {
		err := &quarry.InvalidArgumentError{Model: "User", Operation: "update", Reason: "data is required"}
		assert.True(t, quarry.IsInvalidArgument(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, quarry.IsInvalidArgument(wrapped))

		assert.False(t, quarry.IsInvalidArgument(errors.New("other error")))
		assert.False(t, quarry.IsInvalidArgument(nil))
	})
}

func TestTaxonomyDisjoint(t *testing.T) {
	// Each typed error matches its own sentinel only.
	checks := []struct {
		err  error
		want error
	}{
		{&quarry.NotFoundError{Model: "User"}, quarry.ErrNotFound},
		{&quarry.UnknownFieldError{Model: "User", Field: "x"}, quarry.ErrUnknownField},
		{&quarry.UnknownRelationError{Model: "User", Relation: "x"}, quarry.ErrUnknownRelation},
		{&quarry.UnsupportedOperatorError{Model: "User", Field: "x", Operator: "gt"}, quarry.ErrUnsupportedOperator},
		{&quarry.InvalidGroupByError{Model: "User", Reason: "x"}, quarry.ErrInvalidGroupBy},
		{&quarry.UnsupportedOperationError{Dialect: "mysql", Operation: "x"}, quarry.ErrUnsupportedOperation},
	}
	sentinels := []error{
		quarry.ErrNotFound,
		quarry.ErrUnknownField,
		quarry.ErrUnknownRelation,
		quarry.ErrUnsupportedOperator,
		quarry.ErrInvalidGroupBy,
		quarry.ErrUnsupportedOperation,
	}
	for _, c := range checks {
		for _, s := range sentinels {
			if s == c.want {
				assert.True(t, errors.Is(c.err, s), "%T should match %v", c.err, s)
			} else {
				assert.False(t, errors.Is(c.err, s), "%T should not match %v", c.err, s)
			}
		}
	}
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("IsNotFound", func(b *testing.B) {
		err := &quarry.NotFoundError{Model: "User"}
		for i := 0; i < b.N; i++ {
			_ = quarry.IsNotFound(err)
		}
	})

	b.Run("IsUnknownField", func(b *testing.B) {
		err := &quarry.UnknownFieldError{Model: "User", Field: "x"}
		for i := 0; i < b.N; i++ {
			_ = quarry.IsUnknownField(err)
		}
	})
}

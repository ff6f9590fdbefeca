package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskInputWithDefaults(t *testing.T) {
	in := TaskInput{Title: "T"}.WithDefaults()
	assert.Equal(t, PriorityMedium, in.Priority)
	assert.Equal(t, CategoryGeneral, in.Category)
	assert.False(t, in.Completed)

	in = TaskInput{Title: "T", Priority: PriorityHigh, Category: CategoryStudy}.WithDefaults()
	assert.Equal(t, PriorityHigh, in.Priority)
	assert.Equal(t, CategoryStudy, in.Category)
}

func TestEnumValidation(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		got  bool
	}{
		{"low", true, Priority("low").Valid()},
		{"urgent", false, Priority("urgent").Valid()},
		{"empty priority", false, Priority("").Valid()},
		{"work", true, Category("work").Valid()},
		{"study", true, Category("study").Valid()},
		{"hobby", false, Category("hobby").Valid()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.got)
		})
	}
}

func TestTaskPatchEmpty(t *testing.T) {
	assert.True(t, TaskPatch{}.Empty())
	done := true
	assert.False(t, TaskPatch{Completed: &done}.Empty())
}

package store

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableQuestions   = "questions"
	tableReviewItems = "review_items"
	tableHistory     = "learning_history"
	tableSequence    = "answer_sequence"
)

var (
	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "category", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "text", Type: field.TypeString},
		{Name: "explanation", Type: field.TypeString, Default: ""},
		{Name: "difficulty", Type: field.TypeInt, Default: 1},
		{Name: "correct_answer_json", Type: field.TypeString},
		{Name: "answer_template_json", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeString},
		{Name: "updated_at", Type: field.TypeString},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_category", Columns: []*schema.Column{QuestionsColumns[1]}},
		},
	}

	// ReviewItemsColumns holds the columns for the "review_items" table.
	ReviewItemsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "question_id", Type: field.TypeString, Unique: true},
		{Name: "category", Type: field.TypeString},
		{Name: "incorrect_count", Type: field.TypeInt, Default: 0},
		{Name: "consecutive_correct_count", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString},
		{Name: "priority_score", Type: field.TypeInt, Default: 0},
		{Name: "last_answered_at", Type: field.TypeString},
		{Name: "last_reviewed_at", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeString},
		{Name: "updated_at", Type: field.TypeString},
	}
	// ReviewItemsTable holds the schema information for the "review_items" table.
	ReviewItemsTable = &schema.Table{
		Name:       tableReviewItems,
		Columns:    ReviewItemsColumns,
		PrimaryKey: []*schema.Column{ReviewItemsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "reviewitem_status_priority_score", Columns: []*schema.Column{ReviewItemsColumns[5], ReviewItemsColumns[6]}},
			{Name: "reviewitem_category", Columns: []*schema.Column{ReviewItemsColumns[2]}},
		},
	}

	// LearningHistoryColumns holds the columns for the "learning_history" table.
	LearningHistoryColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "question_id", Type: field.TypeString},
		{Name: "category", Type: field.TypeString},
		{Name: "difficulty", Type: field.TypeInt, Default: 1},
		{Name: "session_id", Type: field.TypeString},
		{Name: "session_type", Type: field.TypeString},
		{Name: "answer_json", Type: field.TypeString},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "answer_time_ms", Type: field.TypeInt64},
		{Name: "answered_at", Type: field.TypeString},
	}
	// LearningHistoryTable holds the schema information for the "learning_history" table.
	LearningHistoryTable = &schema.Table{
		Name:       tableHistory,
		Columns:    LearningHistoryColumns,
		PrimaryKey: []*schema.Column{LearningHistoryColumns[0]},
		Indexes: []*schema.Index{
			{Name: "history_question_id", Columns: []*schema.Column{LearningHistoryColumns[2]}},
			{Name: "history_answered_at", Columns: []*schema.Column{LearningHistoryColumns[10]}},
			{Name: "history_category_answered_at", Columns: []*schema.Column{LearningHistoryColumns[3], LearningHistoryColumns[10]}},
		},
	}

	// AnswerSequenceColumns holds the columns for the "answer_sequence" table.
	AnswerSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	// AnswerSequenceTable holds the single counter row behind
	// learning_history.sequence.
	AnswerSequenceTable = &schema.Table{
		Name:       tableSequence,
		Columns:    AnswerSequenceColumns,
		PrimaryKey: []*schema.Column{AnswerSequenceColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		QuestionsTable,
		ReviewItemsTable,
		LearningHistoryTable,
		AnswerSequenceTable,
	}
)

// migrate creates or updates the tables to match Tables.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

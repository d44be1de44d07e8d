package migrations

func init() {
	Migrations.MustRegister(sqlStep("2024112201_create_quizzes.sql"), dropTable("quizzes"))
}

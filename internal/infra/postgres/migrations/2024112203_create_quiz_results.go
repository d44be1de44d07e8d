package migrations

func init() {
	Migrations.MustRegister(sqlStep("2024112203_create_quiz_results.sql"), dropTable("quiz_results"))
}

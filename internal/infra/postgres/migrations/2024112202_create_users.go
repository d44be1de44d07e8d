package migrations

func init() {
	Migrations.MustRegister(sqlStep("2024112202_create_users.sql"), dropTable("users"))
}

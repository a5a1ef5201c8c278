package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"timeletter/backend/internal/auth"
	"timeletter/backend/internal/config"
	"timeletter/backend/internal/domain"
	sqlstore "timeletter/backend/internal/storage/sql"
)

// main 在数据库中创建一个用户账户（用于初始化或测试环境准备）。
func main() {
	dbType := flag.String("type", "", "数据库类型: mysql 或 postgres")
	dbDSN := flag.String("dsn", "", "数据库连接字符串")
	email := flag.String("email", "", "用户邮箱")
	password := flag.String("password", "", "用户密码（8-128字符）")
	username := flag.String("username", "", "用户名（可选）")
	admin := flag.Bool("admin", false, "是否创建为管理员")
	flag.Parse()

	if *dbType == "" || *dbDSN == "" || *email == "" || *password == "" {
		fmt.Println("用法:")
		fmt.Println("  go run cmd/create-user/main.go -type=postgres -dsn='...' -email=user@example.com -password=secret123")
		os.Exit(1)
	}

	if !domain.ValidateEmail(*email) {
		fmt.Println("错误: 邮箱格式无效")
		os.Exit(1)
	}

	if err := auth.ValidatePassword(*password); err != nil {
		fmt.Printf("错误: 密码不符合要求: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 加载配置失败: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		*dbType,
		*dbDSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("错误: 连接数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hashedPassword, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Printf("错误: 哈希密码失败: %v\n", err)
		os.Exit(1)
	}

	role := domain.RoleUser
	if *admin {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        *email,
		Username:     *username,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.CreateUser(user); err != nil {
		fmt.Printf("错误: 创建用户失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ 用户创建成功!")
	fmt.Printf("  ID:       %s\n", user.ID)
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role:     %s\n", user.Role)
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/repository"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/seed"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var companyID string
	var departmentID string
	var departments string
	var csvPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 创建公司, 2: 插入随机员工, 3: 插入默认班次类型, 4: 插入随机请假, 5: 从 csv 导入员工)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&companyID, "company-id", "", "公司 ID")
	flag.StringVar(&departmentID, "department-id", "", "部门 ID")
	flag.StringVar(&departments, "departments", "销售部,客服部", "创建公司时一并创建的部门，用逗号分隔")
	flag.StringVar(&csvPath, "csv", "./internal/seed/data/employees.csv", "员工 csv 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	parseID := func(name, value string) (uuid.UUID, bool) {
		id, err := uuid.Parse(value)
		if err != nil {
			slog.Error("请输入合法的 ID", slog.String("flag", name))
			return uuid.Nil, false
		}
		return id, true
	}

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		company, ds, err := seed.Setup(repo, cfg.Seed.CompanyName, strings.Split(departments, ","))
		if err != nil {
			slog.Error("无法创建公司", slog.String("error", err.Error()))
			return
		}
		if len(ds) == 0 {
			slog.Error("至少需要一个部门")
			return
		}

		// 每个公司至少要有一个管理员
		admin, err := utils.GenerateRandomEmployee(company.ID, ds[0].ID, cfg.Seed.Employee.Password, cfg.Email.UserDomain)
		if err != nil {
			slog.Error("无法生成管理员", slog.String("error", err.Error()))
			return
		}
		admin.Role = domain.RoleManagerAdmin
		if err := repo.CreateEmployee(admin); err != nil {
			slog.Error("无法插入管理员", slog.String("error", err.Error()))
			return
		}

		slog.Info("创建公司成功", slog.String("company_id", company.ID.String()), slog.String("admin", admin.Username))
		for _, d := range ds {
			slog.Info("创建部门成功", slog.String("name", d.Name), slog.String("department_id", d.ID.String()))
		}
	case 2:
		cid, ok := parseID("company-id", companyID)
		if !ok {
			return
		}
		did, ok := parseID("department-id", departmentID)
		if !ok {
			return
		}
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}

		cnt := n
		for i := 0; i < n; i++ {
			employee, err := utils.GenerateRandomEmployee(cid, did, cfg.Seed.Employee.Password, cfg.Email.UserDomain)
			if err != nil {
				slog.Error("无法生成随机员工", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateEmployee(employee); err != nil {
				slog.Error("无法插入员工", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入员工成功", slog.Int("count", n-cnt))
	case 3:
		did, ok := parseID("department-id", departmentID)
		if !ok {
			return
		}

		d, err := repo.GetDepartmentByID(did)
		if err != nil {
			slog.Error("无法获取部门", slog.String("error", err.Error()))
			return
		}

		employees, err := repo.GetAudience(d.CompanyID, []uuid.UUID{d.ID})
		if err != nil {
			slog.Error("无法获取部门员工", slog.String("error", err.Error()))
			return
		}
		trained := make([]uuid.UUID, 0, len(employees))
		for _, e := range employees {
			trained = append(trained, e.ID)
		}

		cnt, err := seed.CreateShiftTypes(repo, d, trained)
		if err != nil {
			slog.Error("无法插入班次类型", slog.String("error", err.Error()))
		}
		slog.Info("插入班次类型成功", slog.Int("count", cnt))
	case 4:
		cid, ok := parseID("company-id", companyID)
		if !ok {
			return
		}
		if n <= 0 {
			slog.Error("请输入合法的请假数量")
			return
		}

		employees, err := repo.GetEmployeesByCompany(cid)
		if err != nil {
			slog.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}
		absenceTypes, err := repo.GetAbsenceTypes(cid, false)
		if err != nil {
			slog.Error("无法获取请假类型", slog.String("error", err.Error()))
			return
		}

		var approvers, requesters []*domain.Employee
		for _, e := range employees {
			if e.IsManagerAdminOrManager() {
				approvers = append(approvers, e)
			} else {
				requesters = append(requesters, e)
			}
		}
		if len(approvers) == 0 || len(requesters) == 0 || len(absenceTypes) == 0 {
			slog.Error("公司缺少管理者、普通员工或请假类型")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			employee := requesters[rand.Intn(len(requesters))]
			a := utils.GenerateRandomAbsence(
				absenceTypes[rand.Intn(len(absenceTypes))],
				employee,
				approvers[rand.Intn(len(approvers))],
			)
			comment := &domain.AbsenceComment{Status: a.Status, CommentedByID: employee.ID}
			if err := repo.CreateAbsence(a, comment); err != nil {
				slog.Error("无法插入请假", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入请假成功", slog.Int("count", cnt))
	case 5:
		cid, ok := parseID("company-id", companyID)
		if !ok {
			return
		}

		cnt, err := seed.ImportEmployees(repo, cid, csvPath, cfg.Seed.Employee.Password)
		if err != nil {
			slog.Error("导入员工失败", slog.String("error", err.Error()))
		}
		slog.Info("导入员工完成", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}

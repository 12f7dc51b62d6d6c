package adapter

import (
	"context"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

// CELAdmissionPolicy 是 port.AdmissionPolicy 的 CEL 实现。
// 表达式可以引用 user_id、total_price、item_count 和 menu_ids，结果必须是 bool，
// 例如 `total_price <= 500000 && item_count <= 20`。
type CELAdmissionPolicy struct {
	expr    string
	program cel.Program
}

// NewCELAdmissionPolicy 编译规则，空表达式表示全部放行。
func NewCELAdmissionPolicy(expr string) (*CELAdmissionPolicy, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = "true"
	}
	env, err := cel.NewEnv(
		cel.Variable("user_id", cel.IntType),
		cel.Variable("total_price", cel.IntType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("menu_ids", cel.ListType(cel.IntType)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile admission rule %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("admission rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build cel program")
	}
	return &CELAdmissionPolicy{expr: expr, program: prg}, nil
}

func (p *CELAdmissionPolicy) Admit(ctx context.Context, req port.AdmissionRequest) error {
	out, _, err := p.program.Eval(map[string]interface{}{
		"user_id":     req.UserID,
		"total_price": req.TotalPrice,
		"item_count":  int64(req.ItemCount),
		"menu_ids":    req.MenuIDs,
	})
	if err != nil {
		// 规则运行出错时拒单，而不是放行
		logger.Ctx(ctx).Error().Err(err).Str("rule", p.expr).Msg("admission rule evaluation failed")
		return errors.Wrapf(domain.ErrOrderRejected, "evaluate rule: %v", err)
	}
	if ok, _ := out.Value().(bool); !ok {
		return errors.Wrapf(domain.ErrOrderRejected, "rule %q", p.expr)
	}
	return nil
}

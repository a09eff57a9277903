package evaluator

import "math"

// apply computes left op right. offset is the operator's position in the
// top-level input and is only used for error reporting.
func apply(op byte, left, right, offset int) (int, error) {
	switch op {
	case '+':
		if (right > 0 && left > math.MaxInt-right) || (right < 0 && left < math.MinInt-right) {
			return 0, newArithmeticError(op, left, right, offset, ErrOverflow)
		}
		return left + right, nil
	case '-':
		if (right < 0 && left > math.MaxInt+right) || (right > 0 && left < math.MinInt+right) {
			return 0, newArithmeticError(op, left, right, offset, ErrOverflow)
		}
		return left - right, nil
	case '*':
		if left == 0 || right == 0 {
			return 0, nil
		}
		product := left * right
		if product/right != left || (left == -1 && right == math.MinInt) || (right == -1 && left == math.MinInt) {
			return 0, newArithmeticError(op, left, right, offset, ErrOverflow)
		}
		return product, nil
	case '/':
		if right == 0 {
			return 0, newArithmeticError(op, left, right, offset, ErrDivisionByZero)
		}
		if left == math.MinInt && right == -1 {
			return 0, newArithmeticError(op, left, right, offset, ErrOverflow)
		}
		// Go integer division truncates toward zero.
		return left / right, nil
	}
	return 0, newSyntaxError("", offset, "unknown operator %s", quoteByte(op))
}

package evaluator_test

import (
	"errors"
	"fmt"

	"github.com/msto63/pascal/internal/pascal/evaluator"
)

func ExampleEvaluate() {
	value, err := evaluator.Evaluate("((8+7)*2)")
	fmt.Println(value, err)

	_, err = evaluator.Evaluate("(8)")
	fmt.Println(errors.Is(err, evaluator.ErrMalformedExpression))

	// Output:
	// 30 <nil>
	// true
}

func ExampleWithStrictBrackets() {
	lenient := evaluator.New(evaluator.WithStrictBrackets(false))
	value, _ := lenient.Evaluate("(8+1]")
	fmt.Println(value)

	_, err := evaluator.New().Evaluate("(8+1]")
	fmt.Println(evaluator.IsMalformed(err))

	// Output:
	// 9
	// true
}

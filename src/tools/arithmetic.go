package tools

import (
	"context"
	"errors"
	"fmt"
	"math"

	agent "github.com/unrealJuanpa/llm-deep-recall"
)

// Arithmetic returns the standard calculator tool set.
func Arithmetic() []agent.Tool {
	return []agent.Tool{Sumar(), Restar(), Multiplicar(), Dividir(), Potencia(), Modulo()}
}

func Sumar() agent.Tool {
	return binaryTool("sumar", "Devuelve la suma de a y b.", func(a, b float64) (float64, error) {
		return a + b, nil
	})
}

func Restar() agent.Tool {
	return binaryTool("restar", "Resta el segundo número al primero.", func(a, b float64) (float64, error) {
		return a - b, nil
	})
}

func Multiplicar() agent.Tool {
	return binaryTool("multiplicar", "Multiplica dos números.", func(a, b float64) (float64, error) {
		return a * b, nil
	})
}

func Dividir() agent.Tool {
	return binaryTool("dividir", "Divide el primer número entre el segundo (el divisor debe ser distinto de cero).", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("no se puede dividir entre cero")
		}
		return a / b, nil
	})
}

func Potencia() agent.Tool {
	return binaryTool("potencia", "Eleva el primer número a la potencia del segundo.", func(a, b float64) (float64, error) {
		return math.Pow(a, b), nil
	})
}

func Modulo() agent.Tool {
	return binaryTool("modulo", "Calcula el residuo de la división del primero entre el segundo.", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("no se puede calcular el módulo con divisor cero")
		}
		return math.Mod(a, b), nil
	})
}

func binaryTool(name, description string, op func(a, b float64) (float64, error)) agent.Tool {
	return agent.NewTool(name, []string{"a", "b"}, description, func(_ context.Context, args []any) (any, error) {
		a, err := number(args[0])
		if err != nil {
			return nil, err
		}
		b, err := number(args[1])
		if err != nil {
			return nil, err
		}
		return op(a, b)
	})
}

func number(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("se esperaba un número, se recibió %v", v)
	}
	return f, nil
}

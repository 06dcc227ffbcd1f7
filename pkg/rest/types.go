// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

type Deal struct {
	ProductDescription string  `json:"product_description"`
	Price              float64 `json:"price"`
	URL                string  `json:"url"`
}

type Opportunity struct {
	Deal     Deal    `json:"deal"`
	Estimate float64 `json:"estimate"`
	Discount float64 `json:"discount"`
}

type EstimateRequest struct {
	Description string `json:"description" validate:"required"`
}

type Estimate struct {
	Description string  `json:"description"`
	Estimate    float64 `json:"estimate"`
}

type Run struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Logs   []string     `json:"logs,omitempty"`
	Result *Opportunity `json:"result,omitempty"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`
}

// ErrorCode Код ошибки
type ErrorCode string

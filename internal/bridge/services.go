package bridge

// CounterService - устаревший интерфейс сервиса счетчиков.
// Имена метрик могут начинаться с префикса, определяющего тип метрики в реестре.
type CounterService interface {
	// Increment увеличивает метрику на единицу
	Increment(name string)

	// Decrement уменьшает метрику на единицу
	Decrement(name string)

	// Reset сбрасывает метрику
	Reset(name string)
}

// GaugeService - устаревший интерфейс сервиса gauge-метрик
type GaugeService interface {
	// Submit записывает значение метрики
	Submit(name string, value float64)

	// Reset сбрасывает метрику
	Reset(name string)
}

// Services объединяет оба устаревших интерфейса
type Services interface {
	CounterService
	GaugeService
}

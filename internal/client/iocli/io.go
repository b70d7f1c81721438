package iocli

// IO абстрагирует терминал для команд CLI.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	// ReadInput печатает prompt и читает одну строку без завершающего перевода строки.
	// На конце ввода возвращает io.EOF.
	ReadInput(prompt string) (string, error)
	// Interactive сообщает, подключён ли ввод к терминалу.
	Interactive() bool
	Write(p []byte) (n int, err error)
}

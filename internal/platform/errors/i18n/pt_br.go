package i18n

var ptBRCatalog = &Catalog{
	locale: "pt-BR",
	messages: map[Code]string{
		CodeValidation: `{{if eq .Constraint "amount_positive"}}A quantidade deve ser um número inteiro maior que zero.` +
			`{{else if eq .Constraint "amount_exceeds_balance"}}Não é possível solicitar mais que o saldo atual.` +
			`{{else if eq .Constraint "probation"}}Transferências de passes estão indisponíveis durante o período probatório.` +
			`{{else if eq .Constraint "reason_required"}}Informe um motivo para o pedido de incentivo.` +
			`{{else if eq .Constraint "password_length"}}A senha deve ter pelo menos 6 caracteres.` +
			`{{else if eq .Constraint "password_mismatch"}}As senhas não coincidem.` +
			`{{else if eq .Constraint "balance_whole"}}O saldo deve ser um número inteiro (0 ou mais).` +
			`{{else if eq .Constraint "balance_overflow"}}Este crédito excederia o maior saldo suportado.` +
			`{{else if eq .Constraint "credential_set"}}Esta conta já possui uma senha.` +
			`{{else if eq .Constraint "filter"}}A expressão de filtro é inválida.` +
			`{{else}}A solicitação é inválida.{{end}}`,
		CodeAuthFailed: `{{if eq .Reason "unknown_account"}}E-mail não encontrado no sistema` +
			`{{else if eq .Reason "session_required"}}Entre para continuar.` +
			`{{else if eq .Reason "session_invalid"}}Sua sessão expirou. Entre novamente.` +
			`{{else}}Senha incorreta{{end}}`,

		CodePermissionDenied: "Acesso de administrador é necessário",

		CodeInsufficientBalance: "Não é possível aprovar: saldo de {{.Kind}} insuficiente ({{.Balance}} disponível, {{.Amount}} solicitado).",
		CodePartialFailure:      "Saldo atualizado, mas o pedido não foi removido. Remova o pedido {{.RequestID}} manualmente.",

		CodeNotFound: "O recurso {{.Entity}} não foi encontrado",
		CodeUnknown:  "Ocorreu um erro inesperado",
	},
}

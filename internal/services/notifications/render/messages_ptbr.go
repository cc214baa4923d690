package render

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, "notification.cdna_transfer.title", "Novo pedido de uso de CDNA")
	message.SetString(lang, "notification.cdna_incentive.title", "Novo pedido de incentivo de CDNA")
	message.SetString(lang, "notification.pass_incentive.title", "Novo pedido de passe de incentivo")
	message.SetString(lang, "notification.pass_transfer.title", "Novo pedido de transferência de passes")
	message.SetString(lang, "notification.detail.name", "Nome: %s")
	message.SetString(lang, "notification.detail.email", "E-mail: %s")
	message.SetString(lang, "notification.detail.amount", "Quantidade: %d")
	message.SetString(lang, "notification.detail.reason", "Motivo: %s")
	message.SetString(lang, "notification.detail.created", "Criado em: %s")
	message.SetString(lang, "notification.weekly_digest.title", "Transferências FalconNet pendentes da semana")
	_ = message.Set(lang, "notification.weekly_digest.details", plural.Selectf(1, "%d",
		"=1", "Há %d pedido de transferência de passes aguardando a FalconNet.",
		plural.Other, "Há %d pedidos de transferência de passes aguardando a FalconNet.",
	))
}

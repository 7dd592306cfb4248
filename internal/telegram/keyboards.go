package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💰 Моя награда", CallbackData: "reward"},
			},
			{
				{Text: "⚙️ Коллекции", CallbackData: "config"},
			},
		},
	}
}

// RewardKeyboard returns a keyboard under a reward report
func RewardKeyboard(staker string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🔎 Tonviewer", URL: fmt.Sprintf("https://tonviewer.com/%s", staker)},
				{Text: "🔄 Обновить", CallbackData: "refresh:" + staker},
			},
			{
				{Text: "⬅️ Назад", CallbackData: "back"},
			},
		},
	}
}

// BackKeyboard returns a simple back button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ Назад", CallbackData: "back"},
			},
		},
	}
}

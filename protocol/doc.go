// Package protocol реализует формат пакетов ROM загрузчика ESP:
// 8-байтовый заголовок запроса, контрольную сумму блоков данных,
// разбор ответов и таблицу кодов ошибок устройства.
package protocol

package reward

import "strings"

// Category is the fixed closed set of item categories
type Category string

const (
	CategoryDairy        Category = "dairy"
	CategoryBakery       Category = "bakery"
	CategoryPreparedFood Category = "prepared-food"
	CategoryDeli         Category = "deli"
	CategoryFrozen       Category = "frozen"
	CategoryBeverage     Category = "beverage"
	CategoryDessert      Category = "dessert"
	CategoryOther        Category = "other"
)

// categoryRule pairs a keyword group with the category it implies
type categoryRule struct {
	keywords []string
	category Category
}

// categoryRules is evaluated top to bottom and the first rule whose
// keyword group matches wins. The order is a deliberate tie-break policy:
// changing it silently reclassifies previously scanned items, so keep it
// stable. Keywords are matched case-insensitively by containment and
// cover both Japanese product wording and romanized equivalents.
var categoryRules = []categoryRule{
	{[]string{"牛乳", "ヨーグルト", "チーズ", "milk", "yogurt", "cheese"}, CategoryDairy},
	{[]string{"パン", "bread"}, CategoryBakery},
	{[]string{"弁当", "おにぎり", "サンドイッチ", "bento", "onigiri", "rice ball", "sandwich"}, CategoryPreparedFood},
	{[]string{"サラダ", "惣菜", "コロッケ", "salad", "deli", "croquette"}, CategoryDeli},
	{[]string{"冷凍", "frozen"}, CategoryFrozen},
	{[]string{"ジュース", "水", "茶", "juice", "water", "tea"}, CategoryBeverage},
	{[]string{"アイス", "プリン", "ケーキ", "ice cream", "pudding", "cake"}, CategoryDessert},
}

// Classify maps an item name to exactly one category. It is total: any
// string, including the empty string, yields a category, with
// CategoryOther as the catch-all.
func Classify(name string) Category {
	lower := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// Categories returns the fixed category set in classification priority
// order, ending with the catch-all
func Categories() []Category {
	cats := make([]Category, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		cats = append(cats, rule.category)
	}
	return append(cats, CategoryOther)
}

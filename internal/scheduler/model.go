package scheduler

import "github.com/google/uuid"

// Gene: 表示对某个班次的分配决策
type Gene struct {
	shiftID     uuid.UUID
	employeeIDs []uuid.UUID // 如果为空，则表示这个班次没有人值班
	requiredNum int32
	hours       float64
}

func (g *Gene) clone() *Gene {
	return &Gene{
		shiftID:     g.shiftID,
		employeeIDs: append([]uuid.UUID{}, g.employeeIDs...),
		requiredNum: g.requiredNum,
		hours:       g.hours,
	}
}

// Chromosome: 整个排班的分配结果
type Chromosome struct {
	genes   []*Gene
	fitness float64
}

func (ch *Chromosome) clone() *Chromosome {
	genes := make([]*Gene, len(ch.genes))
	for i, g := range ch.genes {
		genes[i] = g.clone()
	}
	return &Chromosome{genes: genes, fitness: ch.fitness}
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int32   // 种群大小
	MaxGenerations int32   // 最大迭代次数
	CrossoverRate  float64 // 交叉概率
	MutationRate   float64 // 变异概率
	EliteCount     int32   // 精英数量
	FairnessWeight float64 // 公平性权重
}
